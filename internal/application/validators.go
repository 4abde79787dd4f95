package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPortRef indicates a port reference that is not in node.port
// form.
var ErrInvalidPortRef = errors.New("invalid port reference")

// ParsePortRef splits a node.port reference into its node and port ids.
// Exactly one dot is allowed, both sides must be non-empty, and both
// sides must use the node-id character set (letters, digits, underscore,
// hyphen).
func ParsePortRef(ref string) (nodeID, portID string, err error) {
	i := strings.IndexByte(ref, '.')
	if i < 0 || strings.IndexByte(ref[i+1:], '.') >= 0 {
		return "", "", fmt.Errorf("%w: %q (want node.port)", ErrInvalidPortRef, ref)
	}
	nodeID, portID = ref[:i], ref[i+1:]
	if !isIdentifier(nodeID) || !isIdentifier(portID) {
		return "", "", fmt.Errorf("%w: %q (want node.port)", ErrInvalidPortRef, ref)
	}
	return nodeID, portID, nil
}

// isIdentifier reports whether s is non-empty and uses only letters,
// digits, underscores, and hyphens.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}

// registerCustomValidators registers domain-specific validation functions
// with the validator instance: semantic version strings, node ids, and
// node.port references.
// registerCustomValidators returns an error if any registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("nodeid", validateNodeID); err != nil {
		return fmt.Errorf("failed to register nodeid validator: %w", err)
	}
	if err := v.RegisterValidation("portref", validatePortRef); err != nil {
		return fmt.Errorf("failed to register portref validator: %w", err)
	}
	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
// validateSemver is a validator.Func that can be registered with the
// validator instance for use in struct tags.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3
}

// validateNodeID validates that a node id uses only the identifier
// character set, keeping edge references unambiguous: a dot can then
// only ever be the node/port separator.
func validateNodeID(fl validator.FieldLevel) bool {
	return isIdentifier(fl.Field().String())
}

// validatePortRef validates that a string is a well-formed node.port
// reference. Reference existence is checked during semantic validation,
// not here.
func validatePortRef(fl validator.FieldLevel) bool {
	_, _, err := ParsePortRef(fl.Field().String())
	return err == nil
}
