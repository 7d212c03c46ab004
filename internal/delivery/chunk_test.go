package delivery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleMessages = []string{
	"🚨Tornado Warning, Issued By: National Weather Service, Locations: Northwest Dallas, Tarrant, Collin, Denton, Rockwall, Kaufman, Ellis, Johnson, Parker",
	"📖Received Required Weekly Test from KFWD/NWS, Issued By: National Weather Service, Location: Dallas",
	"⚠️Severe Thunderstorm Watch, Issued By: National Weather Service",
	"short",
	"a  double  spaced  message  that  goes  on  for  quite  a  while  past  the  limit",
	"trailing space that is long enough to require splitting into two pieces at least ",
	strings.Repeat("x", 120) + " tail",
}

func TestSplit_Lossless(t *testing.T) {
	for _, limit := range []int{10, 40, 75, 228} {
		for _, msg := range sampleMessages {
			fragments := Split(msg, limit)
			require.NotEmpty(t, fragments)
			assert.Equal(t, msg, strings.Join(fragments, " "), "limit %d", limit)
		}
	}
}

func TestSplit_RespectsLimit(t *testing.T) {
	for _, limit := range []int{10, 40, 75} {
		for _, msg := range sampleMessages {
			for _, f := range Split(msg, limit) {
				if len(f) > limit {
					assert.NotContains(t, f, " ", "only a single oversized word may exceed the limit")
				}
			}
		}
	}
}

func TestSplit_Greedy(t *testing.T) {
	fragments := Split("aaa bbb ccc ddd", 7)
	assert.Equal(t, []string{"aaa bbb", "ccc ddd"}, fragments)

	fragments = Split("aaa bbb ccc ddd", 8)
	assert.Equal(t, []string{"aaa bbb", "ccc ddd"}, fragments)

	fragments = Split("aaa bbb ccc ddd", 11)
	assert.Equal(t, []string{"aaa bbb ccc", "ddd"}, fragments)
}

func TestSplit_DefaultBudget(t *testing.T) {
	msg := sampleMessages[0]
	fragments := Split(msg, DefaultFragmentBytes)
	assert.Equal(t, []string{
		"🚨Tornado Warning, Issued By: National Weather Service, Locations:",
		"Northwest Dallas, Tarrant, Collin, Denton, Rockwall, Kaufman, Ellis,",
		"Johnson, Parker",
	}, fragments)
}

func TestSplit_LongWordNotCut(t *testing.T) {
	word := strings.Repeat("x", 120)
	fragments := Split(word+" tail", 75)
	assert.Equal(t, []string{word, "tail"}, fragments)

	assert.Equal(t, []string{word}, Split(word, 75))
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 75))
}

func TestSplit_FitsInOne(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, Split("hello world", 75))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))

	// "🚨" is 4 bytes; cutting inside it must back off to the rune start.
	msg := "ab🚨cd"
	assert.Equal(t, "ab", Truncate(msg, 4))
	assert.Equal(t, "ab🚨", Truncate(msg, 6))
}
