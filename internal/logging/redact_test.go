package logging_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magicorntech/gcp-secret-manager/internal/logging"
)

func TestSecretIsRedacted(t *testing.T) {
	t.Parallel()

	s := logging.Secret("hunter2")

	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.NotContains(t, fmt.Sprint(s), "hunter2")
}

func TestFormatFlagParsing(t *testing.T) {
	t.Parallel()

	var f logging.Format

	assert.NoError(t, f.Set("json"))
	assert.Equal(t, logging.FormatJSON, f)

	assert.NoError(t, f.Set("Console"))
	assert.Equal(t, logging.FormatConsole, f)

	assert.Error(t, f.Set("xml"))
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	o := logging.NewDefaultOptions()
	assert.NoError(t, o.Validate())

	o.Format = "YAML"
	assert.Error(t, o.Validate())
}
