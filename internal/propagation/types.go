package propagation

// Config holds propagation configuration. No loader in internal/config
// populates it.
type Config struct {
	Workers int // propagator cache build / snapshot fan-out width
}
