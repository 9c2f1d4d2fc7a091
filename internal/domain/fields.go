package domain

// Canonical field names produced by extraction and consumed by rules.
const (
	FieldApplicationRef      = "application_ref"
	FieldSiteAddress         = "site_address"
	FieldPostcode            = "postcode"
	FieldProposedUse         = "proposed_use"
	FieldProposalDescription = "proposal_description"
	FieldApplicantName       = "applicant_name"
	FieldAgentName           = "agent_name"
	FieldApplicantEmail      = "applicant_email"
	FieldApplicantPhone      = "applicant_phone"
)

// DocFieldOwnership maps each document type to the fields it can plausibly
// carry. Escalation for a field a document type does not own is pointless:
// a site plan will never state the applicant's email.
var DocFieldOwnership = map[DocumentType][]string{
	DocTypeApplicationForm: {
		FieldApplicationRef, FieldSiteAddress, FieldPostcode, FieldProposedUse,
		FieldApplicantName, FieldAgentName, FieldApplicantEmail, FieldApplicantPhone,
	},
	DocTypeSitePlan:        {FieldSiteAddress, FieldPostcode, FieldProposedUse},
	DocTypeSiteNotice:      {FieldSiteAddress, FieldPostcode, FieldProposalDescription},
	DocTypeDesignStatement: {FieldSiteAddress, FieldProposedUse},
	DocTypeDrawing:         {FieldProposedUse},
	DocTypeHeritage:        {FieldSiteAddress},
	DocTypeUnknown:         {FieldSiteAddress, FieldPostcode, FieldProposedUse},
}

// OwnsField reports whether a document type can plausibly carry a field.
func OwnsField(t DocumentType, field string) bool {
	for _, f := range DocFieldOwnership[t] {
		if f == field {
			return true
		}
	}
	return false
}
