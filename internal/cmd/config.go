package cmd

import (
	"fmt"
	"io"
	"math"
	"net/netip"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/AdguardTeam/golibs/osutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/c2h5oh/datasize"
	"github.com/fcchbjm/adfilter/filterlist"
	"github.com/fcchbjm/adfilter/internal/dnsmsg"
	dnsnetutil "github.com/fcchbjm/adfilter/internal/netutil"
	"gopkg.in/yaml.v3"
)

// Default values of the configuration.
const (
	defaultListenPort    = 53
	defaultUpstreamPort  = 53
	defaultTimeout       = 10 * time.Second
	defaultCacheSize     = 64 * datasize.KB
	defaultSubnetLenIPv4 = 24
	defaultSubnetLenIPv6 = 56
)

// filterConfig is the configuration of a single filter list.  Exactly one of
// Path and Text must be set.
type filterConfig struct {
	// Path is the path to the file with the rules.
	Path string `yaml:"path"`

	// Text is the text of the rules.
	Text string `yaml:"text"`

	// ID is the identifier of the list.  It must be unique among the lists.
	ID int `yaml:"id"`
}

// validate returns an error if conf is invalid.
func (conf *filterConfig) validate() (err error) {
	if conf == nil {
		return errors.ErrNoValue
	}

	var errs []error
	if (conf.Path == "") == (conf.Text == "") {
		errs = append(errs, errors.Error("exactly one of path and text must be set"))
	}

	errs = append(errs,
		validateNotNegative("id", conf.ID),
		validate.NoGreaterThan("id", conf.ID, filterlist.MaxListID-1),
	)

	return errors.Join(errs...)
}

// configuration is the adfilter configuration, which is read from the YAML
// file and overridden by the command-line options.
type configuration struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string `yaml:"-"`

	// LogOutput is the path to the log file.  If empty, the log is written to
	// stdout.
	LogOutput string `yaml:"output"`

	// Upstream is the address of the plain DNS upstream server.  The port may
	// be omitted.
	Upstream string `yaml:"upstream"`

	// BlockingMode defines the responses to the blocked requests.
	BlockingMode dnsmsg.BlockingMode `yaml:"blocking-mode"`

	// ListenAddrs are the IP addresses to listen on.
	ListenAddrs []string `yaml:"listen-addrs"`

	// ListenPorts are the ports to listen on.
	ListenPorts []int `yaml:"listen-ports"`

	// HostsFiles are the paths to the hosts files.  If empty, the system ones
	// are used.
	HostsFiles []string `yaml:"hosts-files"`

	// FilterPaths are the paths to the filter lists given on the command
	// line.  They get the IDs following the ones of Filters.
	FilterPaths []string `yaml:"-"`

	// RatelimitAllowlist are the IP addresses excluded from rate limiting.
	RatelimitAllowlist []string `yaml:"ratelimit-allowlist"`

	// Filters are the filter lists.
	Filters []*filterConfig `yaml:"filters"`

	// Timeout is the timeout of the upstream exchanges.
	Timeout timeutil.Duration `yaml:"timeout"`

	// CacheSizeBytes is the size of the response cache.
	CacheSizeBytes datasize.ByteSize `yaml:"cache-size"`

	// MaxListSize is the maximum size of a filter list file.
	MaxListSize datasize.ByteSize `yaml:"max-list-size"`

	// Ratelimit is the maximum number of requests per second from a subnet.
	// 0 disables rate limiting.
	Ratelimit int `yaml:"ratelimit"`

	// RatelimitSubnetLenIPv4 is the length of the IPv4 subnets for rate
	// limiting.
	RatelimitSubnetLenIPv4 int `yaml:"ratelimit-subnet-len-ipv4"`

	// RatelimitSubnetLenIPv6 is the length of the IPv6 subnets for rate
	// limiting.
	RatelimitSubnetLenIPv6 int `yaml:"ratelimit-subnet-len-ipv6"`

	// IgnoreCosmetic makes the filter lists skip cosmetic rules.
	IgnoreCosmetic bool `yaml:"ignore-cosmetic"`

	// IgnoreJS makes the filter lists skip script and scriptlet rules.
	IgnoreJS bool `yaml:"ignore-js"`

	// IgnoreUnsafe makes the filter lists skip network rules with advanced
	// modifiers.
	IgnoreUnsafe bool `yaml:"ignore-unsafe"`

	// AllowTrustedScriptlets allows the scriptlets with the "trusted-"
	// prefix.
	AllowTrustedScriptlets bool `yaml:"allow-trusted-scriptlets"`

	// Cache enables the response cache.
	Cache bool `yaml:"cache"`

	// HostsFileEnabled makes the service answer from the hosts files.
	HostsFileEnabled bool `yaml:"hosts-file-enabled"`

	// IPv6Disabled makes the service reply to AAAA requests with NODATA.
	IPv6Disabled bool `yaml:"ipv6-disabled"`

	// Verbose enables the debug logging.
	Verbose bool `yaml:"verbose"`

	// CheckFilters makes adfilter report the invalid rules of the filter
	// lists and exit.
	CheckFilters bool `yaml:"check-filters"`

	// Version makes adfilter print the version and exit.
	Version bool `yaml:"-"`

	// help makes adfilter print the usage and exit.
	help bool
}

// newDefaultConfig returns the configuration with the default values.
func newDefaultConfig() (conf *configuration) {
	return &configuration{
		BlockingMode:           dnsmsg.BlockingModeNXDOMAIN,
		ListenAddrs:            []string{netip.IPv4Unspecified().String()},
		ListenPorts:            []int{defaultListenPort},
		Timeout:                timeutil.Duration(defaultTimeout),
		CacheSizeBytes:         defaultCacheSize,
		MaxListSize:            filterlist.DefaultMaxListSize,
		RatelimitSubnetLenIPv4: defaultSubnetLenIPv4,
		RatelimitSubnetLenIPv6: defaultSubnetLenIPv6,
		HostsFileEnabled:       true,
	}
}

// parseConfig returns the configuration from the YAML file and the command
// line arguments.  If conf is nil, the program should exit with exitCode.
func parseConfig(cmdName string, args []string, output io.Writer) (
	conf *configuration,
	exitCode int,
	err error,
) {
	conf = newDefaultConfig()
	err = parseCmdLineOptions(conf, cmdName, args, output)
	if code, needExit := processCmdLineOptions(conf, cmdName, output, err); needExit {
		return nil, code, err
	}

	if confPath := conf.ConfigPath; confPath != "" {
		conf = newDefaultConfig()
		err = parseConfigFile(conf, confPath)
		if err != nil {
			return nil, osutil.ExitCodeFailure, fmt.Errorf("parsing config file %s: %w", confPath, err)
		}

		// Let the command-line options override the file.
		err = parseCmdLineOptions(conf, cmdName, args, io.Discard)
		if err != nil {
			return nil, osutil.ExitCodeArgumentError, err
		}
	}

	err = conf.validate()
	if err != nil {
		return nil, osutil.ExitCodeArgumentError, fmt.Errorf("validating configuration: %w", err)
	}

	return conf, osutil.ExitCodeSuccess, nil
}

// parseConfigFile fills conf with the settings from file read by the given
// path.
func parseConfigFile(conf *configuration, confPath string) (err error) {
	// #nosec G304 -- Trust the file path that is given in the args.
	b, err := os.ReadFile(confPath)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	err = yaml.Unmarshal(b, conf)
	if err != nil {
		return fmt.Errorf("unmarshalling file: %w", err)
	}

	return nil
}

// validate returns an error if conf is invalid.  conf must not be nil.
func (conf *configuration) validate() (err error) {
	var errs []error
	if !conf.CheckFilters {
		_, err = parseUpstream(conf.Upstream)
		if err != nil {
			errs = append(errs, fmt.Errorf("upstream: %w", err))
		}
	}

	_, err = parseAddrs(conf.ListenAddrs)
	if err != nil {
		errs = append(errs, fmt.Errorf("listen-addrs: %w", err))
	}

	_, err = parseAddrs(conf.RatelimitAllowlist)
	if err != nil {
		errs = append(errs, fmt.Errorf("ratelimit-allowlist: %w", err))
	}

	for i, p := range conf.ListenPorts {
		name := fmt.Sprintf("listen-ports at index %d", i)
		errs = append(errs,
			validateNotNegative(name, p),
			validate.NoGreaterThan(name, p, math.MaxUint16),
		)
	}

	if time.Duration(conf.Timeout) <= 0 {
		errs = append(errs, fmt.Errorf("timeout: must be positive, got %s", time.Duration(conf.Timeout)))
	}

	errs = append(errs,
		conf.BlockingMode.Validate(),
		validateNotNegative("ratelimit", conf.Ratelimit),
		validate.NoGreaterThan("ratelimit-subnet-len-ipv4", conf.RatelimitSubnetLenIPv4, netutil.IPv4BitLen),
		validate.NoGreaterThan("ratelimit-subnet-len-ipv6", conf.RatelimitSubnetLenIPv6, netutil.IPv6BitLen),
		conf.validateFilters(),
	)

	return errors.Join(errs...)
}

// validateFilters returns an error if the filter lists of conf are invalid.
func (conf *configuration) validateFilters() (err error) {
	var errs []error
	ids := map[int]struct{}{}
	for i, f := range conf.filters() {
		err = f.validate()
		if err != nil {
			errs = append(errs, fmt.Errorf("filters at index %d: %w", i, err))

			continue
		}

		if _, ok := ids[f.ID]; ok {
			errs = append(errs, fmt.Errorf("filters at index %d: %w: %d", i, filterlist.ErrDuplicateListID, f.ID))
		}

		ids[f.ID] = struct{}{}
	}

	return errors.Join(errs...)
}

// filters returns the filter lists from the file and the ones given on the
// command line.
func (conf *configuration) filters() (fs []*filterConfig) {
	fs = append(fs, conf.Filters...)

	nextID := 1
	for _, f := range conf.Filters {
		if f != nil && f.ID >= nextID {
			nextID = f.ID + 1
		}
	}

	for i, p := range conf.FilterPaths {
		fs = append(fs, &filterConfig{
			Path: p,
			ID:   nextID + i,
		})
	}

	return fs
}

// listenAddrs returns the addresses to listen on.  conf must be valid.
func (conf *configuration) listenAddrs() (addrs []netip.AddrPort) {
	ips, _ := parseAddrs(conf.ListenAddrs)
	ports := make([]uint16, 0, len(conf.ListenPorts))
	for _, p := range conf.ListenPorts {
		ports = append(ports, uint16(p))
	}

	return dnsnetutil.ListenAddrs(ips, ports)
}

// parseAddrs parses the IP addresses of strs.
func parseAddrs(strs []string) (addrs []netip.Addr, err error) {
	var errs []error
	for i, s := range strs {
		var ip netip.Addr
		ip, err = netip.ParseAddr(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("at index %d: %w", i, err))

			continue
		}

		addrs = append(addrs, ip)
	}

	return addrs, errors.Join(errs...)
}

// parseUpstream parses the address of the upstream server with an optional
// port.
func parseUpstream(s string) (addr netip.AddrPort, err error) {
	if s == "" {
		return netip.AddrPort{}, errors.ErrNoValue
	}

	addr, err = netip.ParseAddrPort(s)
	if err == nil {
		return addr, nil
	}

	ip, ipErr := netip.ParseAddr(s)
	if ipErr != nil {
		return netip.AddrPort{}, fmt.Errorf("bad address %q: %w", s, err)
	}

	return netip.AddrPortFrom(ip, defaultUpstreamPort), nil
}

// validateNotNegative returns an error if n is negative.
func validateNotNegative(name string, n int) (err error) {
	if n < 0 {
		return fmt.Errorf("%s: must not be negative, got %d", name, n)
	}

	return nil
}
