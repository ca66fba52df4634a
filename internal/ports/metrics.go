package ports

// Metrics recibe contadores del loop de etiquetado.
type Metrics interface {
	EventIngested()
	WindowReset()
	WindowSlid()
	LabelEmitted()
	EmitFailed()
}
