package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thinkful-ei23/DavidF-noteful-v3/internal/apperr"
	"pgregory.net/rapid"
)

func TestValidateRegistration(t *testing.T) {
	validPassword := "password123"
	testCases := []struct {
		name        string
		fields      map[string]any
		wantMessage string
	}{
		{
			name:   "valid",
			fields: map[string]any{"username": "exampleUser", "password": validPassword, "fullname": "Example User"},
		},
		{
			name:   "valid-without-fullname",
			fields: map[string]any{"username": "exampleUser", "password": validPassword},
		},
		{
			name:        "missing-username",
			fields:      map[string]any{"password": validPassword, "fullname": "Example User"},
			wantMessage: "Missing 'username' in request body",
		},
		{
			name:        "missing-password",
			fields:      map[string]any{"username": "exampleUser"},
			wantMessage: "Missing 'password' in request body",
		},
		{
			name:        "non-string-username",
			fields:      map[string]any{"username": float64(1234), "password": validPassword},
			wantMessage: "Field: 'username' must be type String",
		},
		{
			name:        "non-string-password",
			fields:      map[string]any{"username": "exampleUser", "password": float64(1234)},
			wantMessage: "Field: 'password' must be type String",
		},
		{
			name:        "null-fullname",
			fields:      map[string]any{"username": "exampleUser", "password": validPassword, "fullname": nil},
			wantMessage: "Field: 'fullname' must be type String",
		},
		{
			name:        "untrimmed-username",
			fields:      map[string]any{"username": " exampleUser ", "password": validPassword},
			wantMessage: "Field: 'username' cannot start or end with whitespace",
		},
		{
			name:        "untrimmed-password",
			fields:      map[string]any{"username": "exampleUser", "password": " " + validPassword + " "},
			wantMessage: "Field: 'password' cannot start or end with whitespace",
		},
		{
			name:        "empty-username",
			fields:      map[string]any{"username": "", "password": validPassword},
			wantMessage: "Field: 'username' must be at least 1 characters long",
		},
		{
			name:        "short-password",
			fields:      map[string]any{"username": "exampleUser", "password": "1234567"},
			wantMessage: "Field: 'password' must be at least 8 characters long",
		},
		{
			name:        "long-password",
			fields:      map[string]any{"username": "exampleUser", "password": strings.Repeat("a", 73)},
			wantMessage: "Field: 'password' must be at most 72 characters long",
		},
		{
			name:        "short-multibyte-password",
			fields:      map[string]any{"username": "exampleUser", "password": strings.Repeat("é", 4)},
			wantMessage: "Field: 'password' must be at least 8 characters long",
		},
		{
			name:        "multibyte-password-over-bcrypt-limit",
			fields:      map[string]any{"username": "exampleUser", "password": strings.Repeat("é", 40)},
			wantMessage: "Field: 'password' must be at most 72 bytes long",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := ValidateRegistration(testCase.fields)
			if testCase.wantMessage == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *apperr.ValidationError
			require.True(t, errors.As(err, &validationErr), "expected ValidationError, got %T", err)
			require.Equal(t, testCase.wantMessage, validationErr.Message)
		})
	}
}

func TestValidateRegistrationAcceptsBoundaryPasswords(t *testing.T) {
	for _, length := range []int{8, 72} {
		err := ValidateRegistration(map[string]any{
			"username": "boundary",
			"password": strings.Repeat("p", length),
		})
		require.NoError(t, err, "password of length %d", length)
	}
	// Lengths count characters, so 8 two-byte runes meet the minimum and 36 fill the byte cap.
	for _, length := range []int{8, 36} {
		err := ValidateRegistration(map[string]any{
			"username": "boundary",
			"password": strings.Repeat("é", length),
		})
		require.NoError(t, err, "multibyte password of %d characters", length)
	}
}

func TestRequireField(t *testing.T) {
	name := "Personal"
	blank := "   "

	require.NoError(t, RequireField("name", &name))

	for _, value := range []*string{nil, &blank} {
		err := RequireField("name", value)
		var missing *apperr.MissingFieldError
		require.True(t, errors.As(err, &missing))
		require.Equal(t, "name", missing.Field)
		require.Equal(t, "Missing `name` in request body", err.Error())
	}
}

func testIsValidIdentifierAcceptsGeneratedIDs(t *rapid.T) {
	useV7 := rapid.Bool().Draw(t, "useV7")
	var id uuid.UUID
	if useV7 {
		id = uuid.Must(uuid.NewV7())
	} else {
		id = uuid.New()
	}
	if !IsValidIdentifier(id.String()) {
		t.Fatalf("expected generated identifier %q to be valid", id.String())
	}
}

func TestIsValidIdentifierAcceptsGeneratedIDs(t *testing.T) {
	rapid.Check(t, testIsValidIdentifierAcceptsGeneratedIDs)
}

func testIsValidIdentifierRejectsWrongLength(t *rapid.T) {
	value := rapid.StringMatching(`[0-9a-f-]{0,35}|[0-9a-f-]{37,48}`).Draw(t, "value")
	if IsValidIdentifier(value) {
		t.Fatalf("expected %q to be rejected", value)
	}
}

func TestIsValidIdentifierRejectsWrongLength(t *testing.T) {
	rapid.Check(t, testIsValidIdentifierRejectsWrongLength)
}

func TestIsValidIdentifierRejectsNonCanonicalForms(t *testing.T) {
	id := "0190f1a2-7b3c-7d4e-8f50-6a7b8c9d0e1f"
	require.True(t, IsValidIdentifier(id))
	for _, value := range []string{
		strings.ToUpper(id),
		"{" + id[:34] + "}",
		"not-a-valid-identifier-000000000000",
		"000000000000000000000007",
		"",
	} {
		require.False(t, IsValidIdentifier(value), "value %q", value)
	}
}
