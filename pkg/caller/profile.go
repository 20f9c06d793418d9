package caller

import "fmt"

// Channel is the communication channel of a classified caller.
type Channel int

const (
	ChannelWeb Channel = iota
	ChannelPhone
)

func (c Channel) String() string {
	switch c {
	case ChannelPhone:
		return "phone"
	case ChannelWeb:
		return "web"
	default:
		return "unknown"
	}
}

// Profile is the classifier's output. It is created once per session and
// never mutated. A phone number is carried iff the channel is phone, so
// downstream stages never re-probe participant attributes.
type Profile struct {
	channel         Channel
	displayIdentity string
	phoneNumber     string
}

// PhoneCaller builds a telephony profile. An empty number is tolerated and
// labelled "unknown" rather than failing.
func PhoneCaller(number string) Profile {
	label := number
	if label == "" {
		label = "unknown"
	}
	return Profile{
		channel:         ChannelPhone,
		displayIdentity: fmt.Sprintf("Phone Caller (%s)", label),
		phoneNumber:     number,
	}
}

// WebCaller builds a browser profile from the participant's raw identity.
func WebCaller(identity string) Profile {
	return Profile{
		channel:         ChannelWeb,
		displayIdentity: identity,
	}
}

func (p Profile) Channel() Channel { return p.channel }

func (p Profile) DisplayIdentity() string { return p.displayIdentity }

// PhoneNumber returns the caller's number. ok is false for web callers and
// for telephony callers whose number was not reported by the bridge.
func (p Profile) PhoneNumber() (number string, ok bool) {
	if p.channel != ChannelPhone || p.phoneNumber == "" {
		return "", false
	}
	return p.phoneNumber, true
}
