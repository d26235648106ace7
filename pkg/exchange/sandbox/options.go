package sandbox

type Option func(*Portfolio)

// WithQuantityDigits truncates target quantities to the given number of
// decimal places. Zero trades whole units only.
func WithQuantityDigits(digits int) Option {
	return func(p *Portfolio) {
		p.quantityDigits = digits
	}
}
