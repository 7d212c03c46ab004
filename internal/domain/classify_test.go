package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	policy := ChannelPolicy{Alert: 2, Test: 5, TestEnabled: true}

	tests := []struct {
		tier    Significance
		prefix  string
		channel Channel
	}{
		{SignificanceTest, PrefixTest, 5},
		{SignificanceStatement, PrefixInformational, 2},
		{SignificanceWatch, PrefixCaution, 2},
		{SignificanceWarning, PrefixUrgent, 2},
		{SignificanceEmergency, PrefixUrgent, 2},
		{SignificanceUnknown, PrefixUrgent, 2},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			c := Classify(tt.tier, policy)
			assert.Equal(t, tt.prefix, c.Prefix)
			assert.Equal(t, tt.channel, c.Channel)
			assert.False(t, c.Suppressed)
			assert.Equal(t, tt.tier, c.Tier)
		})
	}
}

func TestClassify_TestSuppressedWithoutTestChannel(t *testing.T) {
	c := Classify(SignificanceTest, ChannelPolicy{Alert: 0})
	assert.True(t, c.Suppressed)

	c = Classify(SignificanceWarning, ChannelPolicy{Alert: 0})
	assert.False(t, c.Suppressed)
}
