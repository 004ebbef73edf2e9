package vault

import "github.com/schoolfund/backend/internal/domain/shared"

// Domain names the workflow that owns a vault movement kind
type Domain string

const (
	DomainLoan     Domain = "loan"
	DomainSavings  Domain = "savings"
	DomainTreasury Domain = "treasury"
	DomainCustody  Domain = "custody"
)

// Direction describes which legs a movement kind touches
type Direction string

const (
	DirectionDebit    Direction = "debit"
	DirectionCredit   Direction = "credit"
	DirectionTransfer Direction = "transfer"
)

// Kind tags a vault movement. Its fields are unexported so the set of kinds
// is closed: only the package-level values below exist. Each kind carries
// the vault types its legs must use; an empty type accepts any vault.
type Kind struct {
	tag       string
	domain    Domain
	direction Direction
	from      Type
	to        Type
}

// Loan movements
var (
	KindLoanDisbursement = Kind{tag: "loan-disbursement", domain: DomainLoan, direction: DirectionDebit, from: TypeCash}
	KindLoanRepayment    = Kind{tag: "loan-repayment", domain: DomainLoan, direction: DirectionCredit, to: TypeCash}
)

// Savings movements
var (
	KindSavingsDeposit    = Kind{tag: "savings-deposit", domain: DomainSavings, direction: DirectionCredit, to: TypeCash}
	KindSavingsWithdrawal = Kind{tag: "savings-withdrawal", domain: DomainSavings, direction: DirectionDebit, from: TypeCash}
)

// Treasury movements between the cash and the bank vault
var (
	KindDepositToBank    = Kind{tag: "deposit-to-bank", domain: DomainTreasury, direction: DirectionTransfer, from: TypeCash, to: TypeBank}
	KindWithdrawFromBank = Kind{tag: "withdraw-from-bank", domain: DomainTreasury, direction: DirectionTransfer, from: TypeBank, to: TypeCash}
)

// Manual corrections recorded by a treasurer
var (
	KindAdjustmentIn  = Kind{tag: "adjustment-in", domain: DomainCustody, direction: DirectionCredit}
	KindAdjustmentOut = Kind{tag: "adjustment-out", domain: DomainCustody, direction: DirectionDebit}
)

var kindsByTag = map[string]Kind{}

func init() {
	for _, k := range []Kind{
		KindLoanDisbursement, KindLoanRepayment,
		KindSavingsDeposit, KindSavingsWithdrawal,
		KindDepositToBank, KindWithdrawFromBank,
		KindAdjustmentIn, KindAdjustmentOut,
	} {
		kindsByTag[k.tag] = k
	}
}

// ParseKind resolves a stored or submitted tag into its Kind
func ParseKind(tag string) (Kind, error) {
	k, ok := kindsByTag[tag]
	if !ok {
		return Kind{}, shared.NewValidationError("Unknown vault movement kind %q", tag)
	}
	return k, nil
}

// String returns the tag stored in the audit log
func (k Kind) String() string { return k.tag }

// Domain returns the workflow owning the kind
func (k Kind) Domain() Domain { return k.domain }

// Direction returns which legs the kind touches
func (k Kind) Direction() Direction { return k.direction }

// SourceType returns the vault type required on the debited leg, if any
func (k Kind) SourceType() Type { return k.from }

// DestinationType returns the vault type required on the credited leg, if any
func (k Kind) DestinationType() Type { return k.to }

// IsZero reports whether k is the zero value
func (k Kind) IsZero() bool { return k.tag == "" }

// IsTransfer reports whether the kind moves money between two vaults
func (k Kind) IsTransfer() bool { return k.direction == DirectionTransfer }
