package uploader

const DefaultMultipartThreshold int64 = 10 * 1024 * 1024

type Strategy string

const (
	StrategySingle    Strategy = "single"
	StrategyMultipart Strategy = "multipart"
)

// Selector picks the transfer strategy for a file by size.
type Selector struct {
	// Threshold is the largest size still sent as a single PUT. Zero means DefaultMultipartThreshold.
	Threshold int64
}

func (s Selector) Choose(size int64) Strategy {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultMultipartThreshold
	}
	if size > threshold {
		return StrategyMultipart
	}
	return StrategySingle
}
