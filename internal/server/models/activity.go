package models

// Activity actions written to the audit log.
const (
	ActivityTermsAccepted  = "terms_accepted"
	ActivityContractSigned = "contract_signed"
	ActivityLinkIssued     = "link_issued"
)

// Activity is one audit log row. Details is stored as jsonb.
type Activity struct {
	ContractID int64
	Action     string
	Details    map[string]any
	IPAddress  *string
}
