package resend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/customdomains/pkg/mailer"
)

func TestConvertTags(t *testing.T) {
	t.Parallel()

	tags := convertTags(mailer.Tags{
		"event":    "verified",
		"owner_id": int64(42),
		"retry":    struct{}{},
		"ok":       true,
	})

	names := make([]string, 0, len(tags))
	values := map[string]string{}
	for _, tg := range tags {
		names = append(names, tg.Name)
		values[tg.Name] = tg.Value
	}
	assert.Equal(t, []string{"event", "ok", "owner_id", "retry"}, names)
	assert.Equal(t, "verified", values["event"])
	assert.Equal(t, "42", values["owner_id"])
	assert.Equal(t, "true", values["retry"])
	assert.Equal(t, "true", values["ok"])
}

func TestTagValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "true", tagValue(nil))
	assert.Equal(t, "7", tagValue(7))
	assert.Equal(t, "1.5", tagValue(1.5))
	assert.Equal(t, "1m0s", tagValue(time.Minute))
	assert.Equal(t, "[a]", tagValue([]string{"a"}))
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{APIKey: "re_123"}.Enabled())
}
