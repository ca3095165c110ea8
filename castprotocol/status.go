package castprotocol

// CastStatus represents the receiver state of a connected device.
type CastStatus struct {
	AppName     string  // running receiver application, empty when idle
	PlayerState string  // "PLAYING", "PAUSED", "IDLE", "BUFFERING"
	Volume      float32 // Volume level (0.0 to 1.0)
	Muted       bool
	MediaTitle  string
}
