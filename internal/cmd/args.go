package cmd

import (
	"encoding"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/c2h5oh/datasize"
	"github.com/fcchbjm/adfilter/internal/dnsmsg"
	"github.com/fcchbjm/adfilter/internal/version"
)

// Indexes to help with the [commandLineOptions] initialization.
const (
	configPathIdx = iota
	logOutputIdx
	upstreamIdx
	blockingModeIdx
	listenAddrsIdx
	listenPortsIdx
	hostsFilesIdx
	filterPathsIdx
	ratelimitAllowlistIdx
	timeoutIdx
	cacheSizeBytesIdx
	maxListSizeIdx
	ratelimitIdx
	ratelimitSubnetLenIPv4Idx
	ratelimitSubnetLenIPv6Idx
	ignoreCosmeticIdx
	ignoreJSIdx
	ignoreUnsafeIdx
	allowTrustedScriptletsIdx
	cacheIdx
	hostsFileEnabledIdx
	ipv6DisabledIdx
	verboseIdx
	checkFiltersIdx
	versionIdx
	helpIdx
)

// commandLineOption contains information about a command-line option: its long
// and, if there is one, short forms, the value type, and the description.
type commandLineOption struct {
	description string
	long        string
	short       string
	valueType   string
}

// commandLineOptions are all command-line options currently supported by the
// binary.
var commandLineOptions = []*commandLineOption{
	configPathIdx: {
		description: "YAML configuration file.  Options passed through command line will " +
			"override the ones from this file.",
		long:      "config-path",
		short:     "",
		valueType: "path",
	},
	logOutputIdx: {
		description: `Path to the log file.`,
		long:        "output",
		short:       "o",
		valueType:   "path",
	},
	upstreamIdx: {
		description: "Plain DNS upstream server address, port 53 is used if omitted.",
		long:        "upstream",
		short:       "u",
		valueType:   "address",
	},
	blockingModeIdx: {
		description: "Responses to the blocked requests, possible values: nxdomain, null_ip, " +
			"refused (default: nxdomain).",
		long:      "blocking-mode",
		short:     "",
		valueType: "mode",
	},
	listenAddrsIdx: {
		description: "Listening addresses.",
		long:        "listen",
		short:       "l",
		valueType:   "address",
	},
	listenPortsIdx: {
		description: "Listening ports.",
		long:        "port",
		short:       "p",
		valueType:   "port",
	},
	hostsFilesIdx: {
		description: "List of paths to the hosts files, can be specified multiple times.",
		long:        "hosts-files",
		short:       "",
		valueType:   "path",
	},
	filterPathsIdx: {
		description: "Path to a filter list, can be specified multiple times.",
		long:        "filter",
		short:       "f",
		valueType:   "path",
	},
	ratelimitAllowlistIdx: {
		description: "IP address excluded from rate limiting, can be specified multiple times.",
		long:        "ratelimit-allowlist",
		short:       "",
		valueType:   "address",
	},
	timeoutIdx: {
		description: "Timeout for outbound DNS queries to the upstream server in a " +
			"human-readable form.",
		long:      "timeout",
		short:     "",
		valueType: "duration",
	},
	cacheSizeBytesIdx: {
		description: "Cache size, for example 64KB.",
		long:        "cache-size",
		short:       "",
		valueType:   "size",
	},
	maxListSizeIdx: {
		description: "Maximum size of a filter list file, for example 64MB.",
		long:        "max-list-size",
		short:       "",
		valueType:   "size",
	},
	ratelimitIdx: {
		description: "Ratelimit (requests per second).",
		long:        "ratelimit",
		short:       "r",
		valueType:   "int",
	},
	ratelimitSubnetLenIPv4Idx: {
		description: "Ratelimit subnet length for IPv4.",
		long:        "ratelimit-subnet-len-ipv4",
		short:       "",
		valueType:   "int",
	},
	ratelimitSubnetLenIPv6Idx: {
		description: "Ratelimit subnet length for IPv6.",
		long:        "ratelimit-subnet-len-ipv6",
		short:       "",
		valueType:   "int",
	},
	ignoreCosmeticIdx: {
		description: "If specified, cosmetic rules are skipped.",
		long:        "ignore-cosmetic",
		short:       "",
		valueType:   "",
	},
	ignoreJSIdx: {
		description: "If specified, script and scriptlet rules are skipped.",
		long:        "ignore-js",
		short:       "",
		valueType:   "",
	},
	ignoreUnsafeIdx: {
		description: "If specified, network rules with advanced modifiers are skipped.",
		long:        "ignore-unsafe",
		short:       "",
		valueType:   "",
	},
	allowTrustedScriptletsIdx: {
		description: `If specified, scriptlets with the "trusted-" prefix are allowed.`,
		long:        "allow-trusted-scriptlets",
		short:       "",
		valueType:   "",
	},
	cacheIdx: {
		description: "If specified, DNS cache is enabled.",
		long:        "cache",
		short:       "",
		valueType:   "",
	},
	hostsFileEnabledIdx: {
		description: "If specified, use hosts files for resolving.",
		long:        "hosts-file-enabled",
		short:       "",
		valueType:   "",
	},
	ipv6DisabledIdx: {
		description: "If specified, all AAAA requests will be replied with NoError RCode and " +
			"empty answer.",
		long:      "ipv6-disabled",
		short:     "",
		valueType: "",
	},
	verboseIdx: {
		description: "Verbose output.",
		long:        "verbose",
		short:       "v",
		valueType:   "",
	},
	checkFiltersIdx: {
		description: "Prints the invalid rules of the filter lists and exits.",
		long:        "check-filters",
		short:       "",
		valueType:   "",
	},
	versionIdx: {
		description: "Prints the program version.",
		long:        "version",
		short:       "",
		valueType:   "",
	},
	helpIdx: {
		description: "Print this help message and quit.",
		long:        "help",
		short:       "h",
		valueType:   "",
	},
}

// parseCmdLineOptions parses the command-line options.  conf must not be nil.
func parseCmdLineOptions(
	conf *configuration,
	cmdName string,
	args []string,
	output io.Writer,
) (err error) {
	flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	flags.SetOutput(output)
	for i, fieldPtr := range []any{
		configPathIdx:             &conf.ConfigPath,
		logOutputIdx:              &conf.LogOutput,
		upstreamIdx:               &conf.Upstream,
		blockingModeIdx:           &conf.BlockingMode,
		listenAddrsIdx:            &conf.ListenAddrs,
		listenPortsIdx:            &conf.ListenPorts,
		hostsFilesIdx:             &conf.HostsFiles,
		filterPathsIdx:            &conf.FilterPaths,
		ratelimitAllowlistIdx:     &conf.RatelimitAllowlist,
		timeoutIdx:                &conf.Timeout,
		cacheSizeBytesIdx:         &conf.CacheSizeBytes,
		maxListSizeIdx:            &conf.MaxListSize,
		ratelimitIdx:              &conf.Ratelimit,
		ratelimitSubnetLenIPv4Idx: &conf.RatelimitSubnetLenIPv4,
		ratelimitSubnetLenIPv6Idx: &conf.RatelimitSubnetLenIPv6,
		ignoreCosmeticIdx:         &conf.IgnoreCosmetic,
		ignoreJSIdx:               &conf.IgnoreJS,
		ignoreUnsafeIdx:           &conf.IgnoreUnsafe,
		allowTrustedScriptletsIdx: &conf.AllowTrustedScriptlets,
		cacheIdx:                  &conf.Cache,
		hostsFileEnabledIdx:       &conf.HostsFileEnabled,
		ipv6DisabledIdx:           &conf.IPv6Disabled,
		verboseIdx:                &conf.Verbose,
		checkFiltersIdx:           &conf.CheckFilters,
		versionIdx:                &conf.Version,
		helpIdx:                   &conf.help,
	} {
		addOption(flags, fieldPtr, commandLineOptions[i])
	}

	flags.Usage = func() { usage(cmdName, output) }

	err = flags.Parse(args)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		return err
	}

	return nil
}

// defineFlag defines a flag with specified setFlag function.  o must not be
// nil.
func defineFlag[T any](
	fieldPtr *T,
	o *commandLineOption,
	setFlag func(p *T, name string, value T, usage string),
) {
	setFlag(fieldPtr, o.long, *fieldPtr, o.description)
	if o.short != "" {
		setFlag(fieldPtr, o.short, *fieldPtr, o.description)
	}
}

// defineFlagVar defines a flag with the specified [flag.Value] value.  o must
// not be nil.
func defineFlagVar(flags *flag.FlagSet, value flag.Value, o *commandLineOption) {
	flags.Var(value, o.long, o.description)
	if o.short != "" {
		flags.Var(value, o.short, o.description)
	}
}

// defineTextFlag defines a flag for the value of a type that can be encoded as
// text, such as [timeutil.Duration] or [datasize.ByteSize].  p is the pointer
// to the field and v is its current value.  o must not be nil.
func defineTextFlag(
	flags *flag.FlagSet,
	p encoding.TextUnmarshaler,
	v encoding.TextMarshaler,
	o *commandLineOption,
) {
	flags.TextVar(p, o.long, v, o.description)
	if o.short != "" {
		flags.TextVar(p, o.short, v, o.description)
	}
}

// addOption adds the command-line option described by o to flags using fieldPtr
// as the pointer to the value.
func addOption(flags *flag.FlagSet, fieldPtr any, o *commandLineOption) {
	switch fieldPtr := fieldPtr.(type) {
	case *string:
		defineFlag(fieldPtr, o, flags.StringVar)
	case *bool:
		defineFlag(fieldPtr, o, flags.BoolVar)
	case *int:
		defineFlag(fieldPtr, o, flags.IntVar)
	case *[]int:
		defineFlagVar(flags, newIntSliceValue(fieldPtr), o)
	case *[]string:
		defineFlagVar(flags, newStringSliceValue(fieldPtr), o)
	case *dnsmsg.BlockingMode:
		defineFlagVar(flags, (*blockingModeValue)(fieldPtr), o)
	case *timeutil.Duration:
		defineTextFlag(flags, fieldPtr, *fieldPtr, o)
	case *datasize.ByteSize:
		defineTextFlag(flags, fieldPtr, *fieldPtr, o)
	default:
		panic(fmt.Errorf("unexpected field pointer type %T: %w", fieldPtr, errors.ErrBadEnumValue))
	}
}

// usage prints a usage message similar to the one printed by package flag but
// taking long vs. short versions into account as well as using more informative
// value hints.
func usage(cmdName string, output io.Writer) {
	options := slices.Clone(commandLineOptions)
	slices.SortStableFunc(options, func(a, b *commandLineOption) (res int) {
		return strings.Compare(a.long, b.long)
	})

	b := &strings.Builder{}
	_, _ = fmt.Fprintf(b, "Usage of %s:\n", cmdName)

	for _, o := range options {
		writeUsageLine(b, o)

		// Use four spaces before the tab to trigger good alignment for both 4-
		// and 8-space tab stops.
		_, _ = fmt.Fprintf(b, "    \t%s\n", o.description)
	}

	_, _ = io.WriteString(output, b.String())
}

// writeUsageLine writes the usage line for the provided command-line option.
func writeUsageLine(b *strings.Builder, o *commandLineOption) {
	if o.short == "" {
		if o.valueType == "" {
			_, _ = fmt.Fprintf(b, "  --%s\n", o.long)
		} else {
			_, _ = fmt.Fprintf(b, "  --%s=%s\n", o.long, o.valueType)
		}

		return
	}

	if o.valueType == "" {
		_, _ = fmt.Fprintf(b, "  --%s/-%s\n", o.long, o.short)
	} else {
		_, _ = fmt.Fprintf(b, "  --%[1]s=%[3]s/-%[2]s %[3]s\n", o.long, o.short, o.valueType)
	}
}

// processCmdLineOptions decides if adfilter should exit depending on the
// results of command-line option parsing.
func processCmdLineOptions(
	conf *configuration,
	cmdName string,
	output io.Writer,
	parseErr error,
) (exitCode int, needExit bool) {
	if parseErr != nil {
		// Assume that usage has already been printed.
		return osutil.ExitCodeArgumentError, true
	}

	if conf.help {
		usage(cmdName, output)

		return osutil.ExitCodeSuccess, true
	}

	if conf.Version {
		_, _ = fmt.Fprintf(output, "adfilter version %s\n", version.Full())

		return osutil.ExitCodeSuccess, true
	}

	return osutil.ExitCodeSuccess, false
}
