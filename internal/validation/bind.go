package validation

import (
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// MissingKeysError lists the body keys that failed RequireKeys, in the order asked.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing or blank: %s", strings.Join(e.Keys, ", "))
}

// RequireKeys checks that every key of body holds a non-blank string.
func RequireKeys(v *validatorv10.Validate, body map[string]interface{}, keys ...string) error {
	var missing []string
	for _, key := range keys {
		s, ok := body[key].(string)
		if !ok {
			missing = append(missing, key)
			continue
		}
		if err := v.Var(s, "required,notblank"); err != nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}
	return nil
}
