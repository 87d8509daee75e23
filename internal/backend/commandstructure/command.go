package commandstructure

// Command is a single transformation step over encoded image bytes
type Command interface {
	Name() string
	Execute(imageData []byte) ([]byte, error)
}
