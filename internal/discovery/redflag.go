package discovery

import (
	"strings"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
)

// DefaultRedFlags are phrases common in scholarship scams.
var DefaultRedFlags = []string{
	"application fee",
	"processing fee",
	"guaranteed scholarship",
	"wire transfer",
	"credit card required",
	"bank account number",
}

// ContainsRedFlag reports whether the candidate's name, organization or
// description contains any of redFlags (case-insensitive).
func ContainsRedFlag(c model.Candidate, redFlags []string) bool {
	combined := strings.ToLower(c.Name + " " + c.Organization + " " + c.Description + " " + c.Eligibility)
	for _, flag := range redFlags {
		flag = strings.ToLower(strings.TrimSpace(flag))
		if flag != "" && strings.Contains(combined, flag) {
			return true
		}
	}
	return false
}

// flagSuspicious routes red-flagged candidates to needs_review and returns
// how many were flagged.
func flagSuspicious(cands []model.Candidate, redFlags []string) int {
	if len(redFlags) == 0 {
		return 0
	}
	n := 0
	for i := range cands {
		if ContainsRedFlag(cands[i], redFlags) {
			cands[i].InitialStatus = string(moderation.StatusNeedsReview)
			n++
		}
	}
	return n
}
