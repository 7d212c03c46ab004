package same

import "github.com/couchcryptid/eas-mesh-relay/internal/domain"

type eventInfo struct {
	description  string
	significance domain.Significance
}

const (
	test      = domain.SignificanceTest
	statement = domain.SignificanceStatement
	watch     = domain.SignificanceWatch
	warning   = domain.SignificanceWarning
	emergency = domain.SignificanceEmergency
)

// events lists the event codes in 47 CFR 11.31 plus the NWS additions.
var events = map[string]eventInfo{
	"EAN": {"Emergency Action Notification", emergency},
	"EAT": {"Emergency Action Termination", statement},
	"NIC": {"National Information Center", statement},
	"NPT": {"National Periodic Test", test},
	"RMT": {"Required Monthly Test", test},
	"RWT": {"Required Weekly Test", test},
	"DMO": {"Practice/Demo Warning", test},
	"ADR": {"Administrative Message", statement},
	"NMN": {"Network Message Notification", statement},

	"AVA": {"Avalanche Watch", watch},
	"AVW": {"Avalanche Warning", warning},
	"BLU": {"Blue Alert", warning},
	"BZW": {"Blizzard Warning", warning},
	"CAE": {"Child Abduction Emergency", emergency},
	"CDW": {"Civil Danger Warning", warning},
	"CEM": {"Civil Emergency Message", warning},
	"CFA": {"Coastal Flood Watch", watch},
	"CFW": {"Coastal Flood Warning", warning},
	"DSW": {"Dust Storm Warning", warning},
	"EQW": {"Earthquake Warning", warning},
	"EVI": {"Evacuation Immediate", warning},
	"EWW": {"Extreme Wind Warning", warning},
	"FFA": {"Flash Flood Watch", watch},
	"FFS": {"Flash Flood Statement", statement},
	"FFW": {"Flash Flood Warning", warning},
	"FLA": {"Flood Watch", watch},
	"FLS": {"Flood Statement", statement},
	"FLW": {"Flood Warning", warning},
	"FRW": {"Fire Warning", warning},
	"HLS": {"Hurricane Statement", statement},
	"HMW": {"Hazardous Materials Warning", warning},
	"HUA": {"Hurricane Watch", watch},
	"HUW": {"Hurricane Warning", warning},
	"HWA": {"High Wind Watch", watch},
	"HWW": {"High Wind Warning", warning},
	"LAE": {"Local Area Emergency", emergency},
	"LEW": {"Law Enforcement Warning", warning},
	"NUW": {"Nuclear Power Plant Warning", warning},
	"RHW": {"Radiological Hazard Warning", warning},
	"SMW": {"Special Marine Warning", warning},
	"SPS": {"Special Weather Statement", statement},
	"SPW": {"Shelter In Place Warning", warning},
	"SQW": {"Snow Squall Warning", warning},
	"SSA": {"Storm Surge Watch", watch},
	"SSW": {"Storm Surge Warning", warning},
	"SVA": {"Severe Thunderstorm Watch", watch},
	"SVR": {"Severe Thunderstorm Warning", warning},
	"SVS": {"Severe Weather Statement", statement},
	"TOA": {"Tornado Watch", watch},
	"TOE": {"911 Telephone Outage Emergency", emergency},
	"TOR": {"Tornado Warning", warning},
	"TRA": {"Tropical Storm Watch", watch},
	"TRW": {"Tropical Storm Warning", warning},
	"TSA": {"Tsunami Watch", watch},
	"TSW": {"Tsunami Warning", warning},
	"VOW": {"Volcano Warning", warning},
	"WSA": {"Winter Storm Watch", watch},
	"WSW": {"Winter Storm Warning", warning},
}

// nationalEvents are always presented as nationwide.
var nationalEvents = map[string]bool{
	"EAN": true,
	"NPT": true,
}

var originators = map[string]string{
	"EAS": "Broadcast station or cable system",
	"CIV": "Civil authorities",
	"WXR": "National Weather Service",
	"PEP": "Primary Entry Point System",
}

// LookupEvent returns the description and tier of an event code. Unknown
// codes fall back to the tier implied by their last letter.
func LookupEvent(code string) (string, domain.Significance) {
	if info, ok := events[code]; ok {
		return info.description, info.significance
	}

	sig := domain.SignificanceUnknown
	if len(code) == 3 {
		switch code[2] {
		case 'W':
			sig = warning
		case 'A':
			sig = watch
		case 'E':
			sig = emergency
		case 'S':
			sig = statement
		case 'T':
			sig = test
		}
	}
	if sig == domain.SignificanceUnknown {
		return "Unrecognized Event " + code, sig
	}
	return "Unrecognized " + capitalize(sig.String()) + " " + code, sig
}

// LookupOriginator returns the detailed originator name, or the code itself.
func LookupOriginator(code string) string {
	if d, ok := originators[code]; ok {
		return d
	}
	return code
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
