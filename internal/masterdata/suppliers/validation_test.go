package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
)

func TestContactKeyFoldsCaseAndSpace(t *testing.T) {
	assert.Equal(t, contactKey("a@x.com"), contactKey("  A@X.COM "))
	assert.Equal(t, contactKey("STRASSE"), contactKey("strasse"))
	assert.NotEqual(t, contactKey("a@x.com"), contactKey("b@x.com"))
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	verr := &ValidationError{}
	verr.Add(FieldContactInfo, msgDuplicateContact)
	verr.Add(FieldContactInfo, "ignored")
	wrapped := fmt.Errorf("create: %w", verr)

	assert.ErrorIs(t, wrapped, shared.ErrValidation)
	assert.Equal(t, map[string]string{FieldContactInfo: msgDuplicateContact}, FieldErrors(wrapped))
	assert.Equal(t, "validation failed: contactInfo: "+msgDuplicateContact, verr.Error())
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("boom")))
	assert.Nil(t, FieldErrors(shared.ErrValidation))
}

func TestContactKeyMayOutgrowContactLimit(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, ServiceConfig{})
	contact := strings.Repeat("ß", 200)

	verr := &ValidationError{}
	require.NoError(t, svc.validate(normalizeCreate(CreateInput{SupplierName: "Straße GmbH", ContactInfo: contact}), verr))
	assert.True(t, verr.empty())
	assert.Equal(t, 400, utf8.RuneCountInString(contactKey(contact)))

	created := mustCreate(t, svc, "Straße GmbH", contact)
	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, contact, loaded.ContactInfo)

	_, err = svc.Create(context.Background(), CreateInput{SupplierName: "Other", ContactInfo: strings.Repeat("SS", 200)})
	assert.Equal(t, map[string]string{FieldContactInfo: msgDuplicateContact}, FieldErrors(err))
}
