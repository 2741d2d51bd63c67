package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/splitsub/pkg/validate"
)

// Validate applies rules in order; the first failing part wins.
func Validate(v *validate.Validator, rules ...validate.Rule) Stage {
	return StageFunc(func(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
		for _, rule := range rules {
			next, err := rule.Apply(r, v)
			if err != nil {
				return nil, err
			}
			r = next
		}
		return r, nil
	})
}
