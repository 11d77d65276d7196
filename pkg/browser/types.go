package browser

// Options configures how browsers are launched.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// SlowMo slows every driver operation down by this many milliseconds
	SlowMo float64

	// Timeout sets the default timeout for driver operations (in milliseconds)
	Timeout float64

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// SkipInstall skips the driver/browser download check on Initialize
	SkipInstall bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Default values for launch options
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultSlowMo         = 1200.0
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.SlowMo < 0 {
		o.SlowMo = 0
	}
	if o.Viewport == nil {
		o.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
}
