//go:build !verifydebug

package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/storefront/pkg/mail"
)

func TestCodeNeverExposedInDefaultBuild(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExposeCodes = true
	manager, err := NewManager(cfg, &mail.MemoryMailer{})
	require.NoError(t, err)

	issued, err := manager.RequestCode(context.Background(), "a@gmail.com", "203.0.113.7")
	require.NoError(t, err)
	require.Empty(t, issued.Code)
}
