package core

// NoPIIMessage is the single recommendation for clean documents
const NoPIIMessage = "No PII detected. Document appears safe."

// recommendations in display priority order, most severe first
var recommendations = []struct {
	kind     Kind
	messages []string
}{
	{KindSSN, []string{
		"🔴 CRITICAL: Social Security Number detected. Immediately delete this content and notify the Data Protection Officer.",
		"Reference: GDPR Article 9 (Special Categories), HIPAA PHI Guidelines",
	}},
	{KindCreditCard, []string{
		"🔴 CRITICAL: Credit card information detected. This violates PCI-DSS standards. Remove immediately.",
		"Action: Redact card number, notify payment security team.",
	}},
	{KindEmail, []string{
		"🟡 Email addresses detected. Verify if disclosure is authorized.",
		"Reference: Internal Policy COM-002 (Communication Channel Rules)",
	}},
	{KindPhone, []string{
		"🟡 Phone numbers detected. Confirm necessity and authorization for sharing.",
	}},
	{KindDateOfBirth, []string{
		"🟡 Date of birth detected. Combined with other PII, this increases identity theft risk.",
	}},
}

// EscalationMessage is appended for documents at or above the flag threshold
const EscalationMessage = "⚠️ HIGH RISK: Document should be escalated to compliance team within 24 hours."

// Recommend returns remediation advice for the kinds found, most severe first
func Recommend(kinds []Kind, riskScore float64) []string {
	if len(kinds) == 0 {
		return []string{NoPIIMessage}
	}

	present := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		present[k] = true
	}

	out := []string{}
	for _, r := range recommendations {
		if present[r.kind] {
			out = append(out, r.messages...)
		}
	}

	if IsFlagged(riskScore) {
		out = append(out, EscalationMessage)
	}

	return out
}
