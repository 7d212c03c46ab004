package domain

// Message prefixes by tier.
const (
	PrefixTest          = "📖Received "
	PrefixInformational = "📟"
	PrefixCaution       = "⚠️"
	PrefixUrgent        = "🚨"
)

// ChannelPolicy holds the configured channel assignment. When TestEnabled
// is false, Test-tier alerts are suppressed.
type ChannelPolicy struct {
	Alert       Channel
	Test        Channel
	TestEnabled bool
}

// Classification is the presentation decision for one alert.
type Classification struct {
	Tier       Significance
	Prefix     string
	Channel    Channel
	Suppressed bool
}

// Classify maps a significance tier to a prefix and target channel.
// Unknown tiers fail safe to the urgent prefix.
func Classify(tier Significance, policy ChannelPolicy) Classification {
	c := Classification{Tier: tier, Channel: policy.Alert}
	switch tier {
	case SignificanceTest:
		c.Prefix = PrefixTest
		if !policy.TestEnabled {
			c.Suppressed = true
			return c
		}
		c.Channel = policy.Test
	case SignificanceStatement:
		c.Prefix = PrefixInformational
	case SignificanceWatch:
		c.Prefix = PrefixCaution
	default:
		c.Prefix = PrefixUrgent
	}
	return c
}
