package domain

// VoiceSnapshot is one side of a voice state update.
type VoiceSnapshot struct {
	ChannelID   string
	ChannelName string
	Members     int
	Muted       bool
	Deafened    bool
}

// InChannel reports whether the member was connected to a voice channel.
func (v VoiceSnapshot) InChannel() bool {
	return v.ChannelID != ""
}

// VoiceTransition classifies a change between two voice snapshots.
type VoiceTransition string

const (
	VoiceJoined     VoiceTransition = "joined"
	VoiceLeft       VoiceTransition = "left"
	VoiceMuted      VoiceTransition = "muted"
	VoiceUnmuted    VoiceTransition = "unmuted"
	VoiceDeafened   VoiceTransition = "deafened"
	VoiceUndeafened VoiceTransition = "undeafened"
	VoiceSwitched   VoiceTransition = "switched channel"
)

// Negative reports whether the transition is a removal-type event.
func (t VoiceTransition) Negative() bool {
	switch t {
	case VoiceLeft, VoiceMuted, VoiceDeafened, VoiceSwitched:
		return true
	}
	return false
}

// ClassifyVoice returns every transition between before and after, in a fixed order.
// One update can carry several, e.g. a member joining already muted.
func ClassifyVoice(before, after VoiceSnapshot) []VoiceTransition {
	var out []VoiceTransition
	if !before.InChannel() && after.InChannel() {
		out = append(out, VoiceJoined)
	}
	if before.InChannel() && !after.InChannel() {
		out = append(out, VoiceLeft)
	}
	if !before.Muted && after.Muted {
		out = append(out, VoiceMuted)
	}
	if before.Muted && !after.Muted {
		out = append(out, VoiceUnmuted)
	}
	if !before.Deafened && after.Deafened {
		out = append(out, VoiceDeafened)
	}
	if before.Deafened && !after.Deafened {
		out = append(out, VoiceUndeafened)
	}
	if before.InChannel() && after.InChannel() && before.ChannelID != after.ChannelID {
		out = append(out, VoiceSwitched)
	}
	return out
}
