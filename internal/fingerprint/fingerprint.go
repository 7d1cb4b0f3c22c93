// Package fingerprint synthesizes the stable browser identity an account
// presents to the target site. Fields are sampled jointly from consistent
// pools — a viewport implies a plausible scale factor and mobile flags, a
// locale implies a timezone in the same region, a WebGL vendor implies a
// matching renderer — so no single field contradicts another.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v6"
)

// Fingerprint is the correlated identity bundle applied to every page an
// account opens. Created once per account, persisted, reused indefinitely.
type Fingerprint struct {
	UserAgent           string  `json:"user_agent"`
	ViewportWidth       int     `json:"viewport_width"`
	ViewportHeight      int     `json:"viewport_height"`
	DeviceScaleFactor   float64 `json:"device_scale_factor"`
	Mobile              bool    `json:"mobile"`
	HasTouch            bool    `json:"has_touch"`
	Locale              string  `json:"locale"`
	Timezone            string  `json:"timezone"`
	ColorScheme         string  `json:"color_scheme"`   // light or dark
	ReducedMotion       string  `json:"reduced_motion"` // no-preference or reduce
	HardwareConcurrency int     `json:"hardware_concurrency"`
	DeviceMemory        int     `json:"device_memory"` // GB
	WebGLVendor         string  `json:"webgl_vendor"`
	WebGLRenderer       string  `json:"webgl_renderer"`
}

// deviceClass groups the fields that must agree with each other for one
// physical device family.
type deviceClass struct {
	userAgents []string
	viewports  [][2]int
	scales     []float64
	mobile     bool
	touch      bool
	cores      []int
	memoryGB   []int
	gpuVendors []string // keys into gpuPairs
}

const chromeVersion = "126.0.0.0"

var deviceClasses = []deviceClass{
	{
		// Windows desktop.
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Safari/537.36",
		},
		viewports:  [][2]int{{1920, 1080}, {1536, 864}, {1366, 768}, {2560, 1440}},
		scales:     []float64{1, 1.25, 1.5},
		cores:      []int{4, 8, 12, 16},
		memoryGB:   []int{8, 16, 32},
		gpuVendors: []string{"nvidia", "amd", "intel"},
	},
	{
		// Mac desktop.
		userAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Safari/537.36",
		},
		viewports:  [][2]int{{1440, 900}, {1680, 1050}, {1728, 1117}},
		scales:     []float64{2},
		cores:      []int{8, 10, 12},
		memoryGB:   []int{8, 16, 32},
		gpuVendors: []string{"apple"},
	},
	{
		// Android phone.
		userAgents: []string{
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Mobile Safari/537.36",
			"Mozilla/5.0 (Linux; Android 14; SM-S928B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/" + chromeVersion + " Mobile Safari/537.36",
		},
		viewports:  [][2]int{{412, 915}, {384, 854}, {360, 800}},
		scales:     []float64{2.625, 3},
		mobile:     true,
		touch:      true,
		cores:      []int{8},
		memoryGB:   []int{8, 12},
		gpuVendors: []string{"arm", "qualcomm"},
	},
}

// gpuPairs maps a vendor key to matching vendor/renderer strings as reported
// through WebGL.
var gpuPairs = map[string][][2]string{
	"nvidia": {
		{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce GTX 1660 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	},
	"amd": {
		{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6600 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	},
	"intel": {
		{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
		{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) Iris(R) Xe Graphics Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	},
	"apple": {
		{"Google Inc. (Apple)", "ANGLE (Apple, ANGLE Metal Renderer: Apple M2, Unspecified Version)"},
		{"Google Inc. (Apple)", "ANGLE (Apple, ANGLE Metal Renderer: Apple M3 Pro, Unspecified Version)"},
	},
	"arm": {
		{"ARM", "Mali-G715-Immortalis MC11"},
	},
	"qualcomm": {
		{"Qualcomm", "Adreno (TM) 750"},
	},
}

// region groups locales with timezones they plausibly co-occur with.
type region struct {
	locales   []string
	timezones []string
}

var regions = []region{
	{
		locales:   []string{"en-US"},
		timezones: []string{"America/New_York", "America/Chicago", "America/Denver", "America/Los_Angeles"},
	},
	{
		locales:   []string{"en-GB"},
		timezones: []string{"Europe/London"},
	},
	{
		locales:   []string{"de-DE", "de-AT"},
		timezones: []string{"Europe/Berlin", "Europe/Vienna"},
	},
	{
		locales:   []string{"es-ES"},
		timezones: []string{"Europe/Madrid"},
	},
	{
		locales:   []string{"pt-BR"},
		timezones: []string{"America/Sao_Paulo"},
	},
}

// Generate samples a new correlated fingerprint from the given faker.
func Generate(f *gofakeit.Faker) Fingerprint {
	class := deviceClasses[f.IntRange(0, len(deviceClasses)-1)]
	viewport := class.viewports[f.IntRange(0, len(class.viewports)-1)]
	vendorKey := class.gpuVendors[f.IntRange(0, len(class.gpuVendors)-1)]
	pairs := gpuPairs[vendorKey]
	gpu := pairs[f.IntRange(0, len(pairs)-1)]
	reg := regions[f.IntRange(0, len(regions)-1)]

	colorScheme := "light"
	if f.Bool() {
		colorScheme = "dark"
	}
	reducedMotion := "no-preference"
	if f.Float64Range(0, 1) < 0.08 {
		reducedMotion = "reduce"
	}

	return Fingerprint{
		UserAgent:           class.userAgents[f.IntRange(0, len(class.userAgents)-1)],
		ViewportWidth:       viewport[0],
		ViewportHeight:      viewport[1],
		DeviceScaleFactor:   class.scales[f.IntRange(0, len(class.scales)-1)],
		Mobile:              class.mobile,
		HasTouch:            class.touch,
		Locale:              reg.locales[f.IntRange(0, len(reg.locales)-1)],
		Timezone:            reg.timezones[f.IntRange(0, len(reg.timezones)-1)],
		ColorScheme:         colorScheme,
		ReducedMotion:       reducedMotion,
		HardwareConcurrency: class.cores[f.IntRange(0, len(class.cores)-1)],
		DeviceMemory:        class.memoryGB[f.IntRange(0, len(class.memoryGB)-1)],
		WebGLVendor:         gpu[0],
		WebGLRenderer:       gpu[1],
	}
}

// LoadOrCreate returns the persisted fingerprint for accountKey, generating
// and persisting one on first use. Once a record exists it is returned as-is
// forever: an account's synthetic identity never changes across runs.
func LoadOrCreate(dir, accountKey string) (Fingerprint, error) {
	path := filepath.Join(dir, accountKey+".json")

	data, err := os.ReadFile(path)
	if err == nil {
		var fp Fingerprint
		if err := json.Unmarshal(data, &fp); err != nil {
			return Fingerprint{}, fmt.Errorf("fingerprint %s corrupt: %w", path, err)
		}
		return fp, nil
	}
	if !os.IsNotExist(err) {
		return Fingerprint{}, err
	}

	fp := Generate(gofakeit.New(0))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Fingerprint{}, err
	}
	out, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return Fingerprint{}, err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return Fingerprint{}, fmt.Errorf("persist fingerprint: %w", err)
	}
	return fp, nil
}
