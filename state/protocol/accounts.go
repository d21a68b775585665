package protocol

// Well known accounts created at genesis, in instance order.
var (
	CommitteeAccount           = AccountID(0)
	WitnessAccount             = AccountID(1)
	RelaxedCommitteeAccount    = AccountID(2)
	NullAccount                = AccountID(3)
	TempAccount                = AccountID(4)
	ProxyToSelfAccount         = AccountID(5)
	ConstructionCapitalAccount = AccountID(6)
)

var SpecialAccountNames = []string{
	"committee-account",
	"witness-account",
	"relaxed-committee-account",
	"null-account",
	"temp-account",
	"proxy-to-self",
	"construction-capital",
}
