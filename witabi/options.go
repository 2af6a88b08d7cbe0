package witabi

const (
	MaxStringSize = 1 << 30
	MaxListLength = 1 << 27
	MaxAlloc      = 1 << 30
)

// Options bound what lowering and lifting accept from either side.
type Options struct {
	MaxStringSize uint32
	MaxListLength uint32
}

func DefaultOptions() Options {
	return Options{
		MaxStringSize: MaxStringSize,
		MaxListLength: MaxListLength,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxStringSize == 0 {
		o.MaxStringSize = MaxStringSize
	}
	if o.MaxListLength == 0 {
		o.MaxListLength = MaxListLength
	}
	return o
}
