package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask_ShortKeyHidesLength(t *testing.T) {
	// 短 key 一律固定 8 個遮蔽字元，看不出原始長度
	for _, key := range []string{"", "a", "12345678"} {
		masked := Mask(key)
		assert.Equal(t, strings.Repeat("•", 8), masked, "key=%q", key)
	}
}

func TestMask_LongKeyKeepsEdges(t *testing.T) {
	masked := Mask("sk-proj-abcdef123456")

	assert.True(t, strings.HasPrefix(masked, "sk-p"))
	assert.True(t, strings.HasSuffix(masked, "3456"))
	assert.Equal(t, "sk-p"+strings.Repeat("•", 4)+"3456", masked)
	assert.NotContains(t, masked, "abcdef")
}

func TestMask_MiddleAlwaysFourRunes(t *testing.T) {
	// 中段長度固定，不隨 key 長度改變
	short := Mask("123456789")
	long := Mask("sk-" + strings.Repeat("x", 100))

	assert.Equal(t, strings.Count(short, "•"), strings.Count(long, "•"))
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	first := Fingerprint("sk-test-key", "server-secret")
	second := Fingerprint("sk-test-key", "server-secret")
	other := Fingerprint("sk-other-key", "server-secret")

	require.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 16)
}

func TestFingerprint_DependsOnServerSecret(t *testing.T) {
	assert.NotEqual(t,
		Fingerprint("sk-test-key", "secret-a"),
		Fingerprint("sk-test-key", "secret-b"),
	)
}

func TestFingerprint_NeverContainsKey(t *testing.T) {
	key := "sk-live-supersecret"
	assert.NotContains(t, Fingerprint(key, "server-secret"), key)
}
