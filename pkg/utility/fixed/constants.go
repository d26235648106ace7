package fixed

//goland:noinspection GoUnusedGlobalVariable
var (
	NegOne  = FromInt64(-1, 0)
	Zero    = FromInt64(0, 0)
	One     = FromInt64(1, 0)
	Two     = FromInt64(2, 0)
	Three   = FromInt64(3, 0)
	Ten     = FromInt64(10, 0)
	Hundred = FromInt64(100, 0)

	PointFive = FromInt64(5, 1)

	// Sqrt252 annualizes daily figures over trading days.
	Sqrt252 = FromInt64(158745078663875, 13)
)
