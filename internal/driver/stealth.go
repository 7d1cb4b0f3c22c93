package driver

import (
	"fmt"
	"strings"

	"engagemon/internal/fingerprint"
)

// stealthScript builds the init script injected before any site code runs.
// It aligns the JS-visible surface with the emulated fingerprint: without
// this, navigator.hardwareConcurrency and the WebGL strings would report the
// real host and contradict the advertised device.
func stealthScript(fp fingerprint.Fingerprint) string {
	lang := fp.Locale
	base := lang
	if i := strings.Index(lang, "-"); i > 0 {
		base = lang[:i]
	}
	return fmt.Sprintf(`() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
	Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
	Object.defineProperty(navigator, 'languages', { get: () => [%q, %q] });

	const vendor = %q;
	const renderer = %q;
	const patch = (proto) => {
		if (!proto) return;
		const orig = proto.getParameter;
		proto.getParameter = function (param) {
			if (param === 37445) return vendor;   // UNMASKED_VENDOR_WEBGL
			if (param === 37446) return renderer; // UNMASKED_RENDERER_WEBGL
			return orig.call(this, param);
		};
	};
	patch(window.WebGLRenderingContext && WebGLRenderingContext.prototype);
	patch(window.WebGL2RenderingContext && WebGL2RenderingContext.prototype);

	if (window.chrome === undefined) {
		window.chrome = { runtime: {} };
	}
}`,
		fp.HardwareConcurrency,
		fp.DeviceMemory,
		lang, base,
		fp.WebGLVendor,
		fp.WebGLRenderer,
	)
}
