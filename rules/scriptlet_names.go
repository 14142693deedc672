package rules

// scriptletNames are the known scriptlet names including the aliases.
var scriptletNames = []string{
	"abort-current-inline-script",
	"abort-current-inline-script.js",
	"abort-current-script.js",
	"abort-on-property-read",
	"abort-on-property-read.js",
	"abort-on-property-write",
	"abort-on-property-write.js",
	"abort-on-stack-trace",
	"abort-on-stack-trace.js",
	"abp-abort-current-inline-script",
	"abp-abort-on-property-read",
	"abp-abort-on-property-write",
	"abp-abort-on-stack-trace",
	"abp-cookie-remover",
	"abp-json-prune",
	"abp-log",
	"abp-override-property-read",
	"abp-prevent-listener",
	"acis.js",
	"acs.js",
	"addEventListener-defuser.js",
	"addEventListener-logger.js",
	"adjust-setInterval",
	"adjust-setInterval.js",
	"adjust-setTimeout",
	"adjust-setTimeout.js",
	"aeld.js",
	"aell.js",
	"aopr.js",
	"aopw.js",
	"aost.js",
	"bab-defuser",
	"bab-defuser.js",
	"call-nothrow",
	"call-nothrow.js",
	"close-window",
	"close-window.js",
	"cookie-remover.js",
	"debug-current-inline-script",
	"debug-on-property-read",
	"debug-on-property-write",
	"dir-string",
	"disable-newtab-links",
	"disable-newtab-links.js",
	"evaldata-prune",
	"evaldata-prune.js",
	"fuckadblock.js-3.2.0",
	"hide-in-shadow-dom",
	"href-sanitizer",
	"href-sanitizer.js",
	"inject-css-in-shadow-dom",
	"json-prune",
	"json-prune-fetch-response",
	"json-prune-fetch-response.js",
	"json-prune-xhr-response",
	"json-prune-xhr-response.js",
	"json-prune.js",
	"log",
	"log-addEventListener",
	"log-eval",
	"log-on-stack-trace",
	"m3u-prune",
	"m3u-prune.js",
	"nano-setInterval-booster.js",
	"nano-setTimeout-booster.js",
	"nano-sib.js",
	"nano-stb.js",
	"no-fetch-if.js",
	"no-protected-audience",
	"no-requestAnimationFrame-if.js",
	"no-setInterval-if.js",
	"no-setTimeout-if.js",
	"no-topics",
	"no-window-open-if.js",
	"no-xhr-if.js",
	"nobab",
	"nobab.js",
	"noeval",
	"noeval-if.js",
	"noeval.js",
	"nofab.js",
	"norafif.js",
	"nosiif.js",
	"nostif.js",
	"nowebrtc",
	"nowebrtc.js",
	"nowoif.js",
	"popads-dummy.js",
	"popads.net.js",
	"prevent-addEventListener",
	"prevent-adfly",
	"prevent-bab",
	"prevent-canvas",
	"prevent-canvas.js",
	"prevent-element-src-loading",
	"prevent-eval-if",
	"prevent-fab-3.2.0",
	"prevent-fetch",
	"prevent-fetch.js",
	"prevent-popads-net",
	"prevent-refresh",
	"prevent-refresh.js",
	"prevent-requestAnimationFrame",
	"prevent-setInterval",
	"prevent-setTimeout",
	"prevent-window-open",
	"prevent-xhr",
	"ra.js",
	"rc.js",
	"refresh-defuser",
	"refresh-defuser.js",
	"remove-attr",
	"remove-attr.js",
	"remove-class",
	"remove-class.js",
	"remove-cookie",
	"remove-cookie.js",
	"remove-in-shadow-dom",
	"remove-node-text",
	"remove-node-text.js",
	"rmnt.js",
	"set-attr",
	"set-attr.js",
	"set-constant",
	"set-constant.js",
	"set-cookie",
	"set-cookie-reload",
	"set-cookie-reload.js",
	"set-cookie.js",
	"set-local-storage-item",
	"set-local-storage-item.js",
	"set-popads-dummy",
	"set-session-storage-item",
	"set-session-storage-item.js",
	"set.js",
	"setInterval-defuser.js",
	"setTimeout-defuser.js",
	"sid.js",
	"silent-noeval.js",
	"spoof-css",
	"spoof-css.js",
	"std.js",
	"trusted-click-element",
	"trusted-create-element",
	"trusted-dispatch-event",
	"trusted-prune-inbound-object",
	"trusted-replace-argument",
	"trusted-replace-fetch-response",
	"trusted-replace-node-text",
	"trusted-replace-outbound-text",
	"trusted-replace-xhr-response",
	"trusted-set-attr",
	"trusted-set-constant",
	"trusted-set-cookie",
	"trusted-set-cookie-reload",
	"trusted-set-local-storage-item",
	"trusted-set-session-storage-item",
	"trusted-suppress-native-method",
	"ubo-abort-current-inline-script",
	"ubo-abort-current-inline-script.js",
	"ubo-abort-current-script",
	"ubo-abort-current-script.js",
	"ubo-abort-on-property-read",
	"ubo-abort-on-property-read.js",
	"ubo-abort-on-property-write",
	"ubo-abort-on-property-write.js",
	"ubo-abort-on-stack-trace",
	"ubo-abort-on-stack-trace.js",
	"ubo-acis",
	"ubo-acis.js",
	"ubo-acs",
	"ubo-acs.js",
	"ubo-addEventListener-defuser",
	"ubo-addEventListener-defuser.js",
	"ubo-addEventListener-logger",
	"ubo-addEventListener-logger.js",
	"ubo-adjust-setInterval",
	"ubo-adjust-setInterval.js",
	"ubo-adjust-setTimeout",
	"ubo-adjust-setTimeout.js",
	"ubo-aeld",
	"ubo-aeld.js",
	"ubo-aell",
	"ubo-aell.js",
	"ubo-aopr",
	"ubo-aopr.js",
	"ubo-aopw",
	"ubo-aopw.js",
	"ubo-aost",
	"ubo-aost.js",
	"ubo-call-nothrow",
	"ubo-call-nothrow.js",
	"ubo-close-window",
	"ubo-close-window.js",
	"ubo-cookie-remover",
	"ubo-cookie-remover.js",
	"ubo-disable-newtab-links",
	"ubo-disable-newtab-links.js",
	"ubo-evaldata-prune",
	"ubo-evaldata-prune.js",
	"ubo-fuckadblock.js-3.2.0",
	"ubo-href-sanitizer",
	"ubo-href-sanitizer.js",
	"ubo-json-prune",
	"ubo-json-prune-fetch-response",
	"ubo-json-prune-fetch-response.js",
	"ubo-json-prune-xhr-response",
	"ubo-json-prune-xhr-response.js",
	"ubo-json-prune.js",
	"ubo-m3u-prune",
	"ubo-m3u-prune.js",
	"ubo-nano-setInterval-booster",
	"ubo-nano-setInterval-booster.js",
	"ubo-nano-setTimeout-booster",
	"ubo-nano-setTimeout-booster.js",
	"ubo-nano-sib",
	"ubo-nano-sib.js",
	"ubo-nano-stb",
	"ubo-nano-stb.js",
	"ubo-no-fetch-if",
	"ubo-no-fetch-if.js",
	"ubo-no-requestAnimationFrame-if",
	"ubo-no-requestAnimationFrame-if.js",
	"ubo-no-setInterval-if",
	"ubo-no-setInterval-if.js",
	"ubo-no-setTimeout-if",
	"ubo-no-setTimeout-if.js",
	"ubo-no-window-open-if",
	"ubo-no-window-open-if.js",
	"ubo-no-xhr-if",
	"ubo-no-xhr-if.js",
	"ubo-nobab",
	"ubo-nobab.js",
	"ubo-noeval",
	"ubo-noeval-if",
	"ubo-noeval-if.js",
	"ubo-noeval.js",
	"ubo-nofab",
	"ubo-nofab.js",
	"ubo-norafif",
	"ubo-norafif.js",
	"ubo-nosiif",
	"ubo-nosiif.js",
	"ubo-nostif",
	"ubo-nostif.js",
	"ubo-nowebrtc",
	"ubo-nowebrtc.js",
	"ubo-nowoif",
	"ubo-nowoif.js",
	"ubo-popads-dummy",
	"ubo-popads-dummy.js",
	"ubo-popads.net",
	"ubo-popads.net.js",
	"ubo-prevent-canvas",
	"ubo-prevent-canvas.js",
	"ubo-prevent-fetch",
	"ubo-prevent-fetch.js",
	"ubo-prevent-refresh",
	"ubo-prevent-refresh.js",
	"ubo-ra",
	"ubo-ra.js",
	"ubo-rc",
	"ubo-rc.js",
	"ubo-refresh-defuser",
	"ubo-refresh-defuser.js",
	"ubo-remove-attr",
	"ubo-remove-attr.js",
	"ubo-remove-class",
	"ubo-remove-class.js",
	"ubo-remove-cookie",
	"ubo-remove-cookie.js",
	"ubo-remove-node-text",
	"ubo-remove-node-text.js",
	"ubo-rmnt",
	"ubo-rmnt.js",
	"ubo-set",
	"ubo-set-attr",
	"ubo-set-attr.js",
	"ubo-set-constant",
	"ubo-set-constant.js",
	"ubo-set-cookie",
	"ubo-set-cookie-reload",
	"ubo-set-cookie-reload.js",
	"ubo-set-cookie.js",
	"ubo-set-local-storage-item",
	"ubo-set-local-storage-item.js",
	"ubo-set-session-storage-item",
	"ubo-set-session-storage-item.js",
	"ubo-set.js",
	"ubo-setInterval-defuser",
	"ubo-setInterval-defuser.js",
	"ubo-setTimeout-defuser",
	"ubo-setTimeout-defuser.js",
	"ubo-sid",
	"ubo-sid.js",
	"ubo-silent-noeval",
	"ubo-silent-noeval.js",
	"ubo-spoof-css",
	"ubo-spoof-css.js",
	"ubo-std",
	"ubo-std.js",
	"ubo-window-close-if",
	"ubo-window-close-if.js",
	"ubo-window.open-defuser",
	"ubo-window.open-defuser.js",
	"ubo-xml-prune",
	"ubo-xml-prune.js",
	"window-close-if.js",
	"window.open-defuser.js",
	"xml-prune",
	"xml-prune.js",
}

// redirectScriptletNames are the names of the redirect resources implemented as
// scriptlets.
var redirectScriptletNames = []string{
	"amazon-apstag",
	"amazon_apstag.js",
	"didomi-loader",
	"fingerprint2.js",
	"fingerprint3.js",
	"fingerprintjs2",
	"fingerprintjs3",
	"gemius",
	"google-analytics",
	"google-analytics-ga",
	"google-analytics_analytics.js",
	"google-analytics_ga.js",
	"google-ima.js",
	"google-ima3",
	"googlesyndication-adsbygoogle",
	"googlesyndication_adsbygoogle.js",
	"googletagmanager-gtm",
	"googletagmanager_gtm.js",
	"googletagservices-gpt",
	"googletagservices_gpt.js",
	"matomo",
	"metrika-yandex-tag",
	"metrika-yandex-watch",
	"naver-wcslog",
	"pardot-1.0",
	"prebid",
	"scorecardresearch-beacon",
	"scorecardresearch_beacon.js",
	"ubo-amazon_apstag.js",
	"ubo-fingerprint2.js",
	"ubo-fingerprint3.js",
	"ubo-google-analytics_analytics.js",
	"ubo-google-analytics_ga.js",
	"ubo-google-ima.js",
	"ubo-googlesyndication_adsbygoogle.js",
	"ubo-googletagmanager_gtm.js",
	"ubo-googletagservices_gpt.js",
	"ubo-scorecardresearch_beacon.js",
}
