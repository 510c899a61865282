package commands

import "github.com/grl-racing/grlbot/gateway"

// Displayable is implemented by every enumerated choice value. Display
// strings live in static tables built at init, not in runtime
// reflection over the value's type.
type Displayable interface {
	Display() string
}

// Track is an F1 circuit a practice can run on.
type Track string

const (
	TrackBahrain      Track = "bahrain"
	TrackJeddah       Track = "jeddah"
	TrackAustralia    Track = "australia"
	TrackJapan        Track = "japan"
	TrackChina        Track = "china"
	TrackMiami        Track = "miami"
	TrackImola        Track = "imola"
	TrackMonaco       Track = "monaco"
	TrackCanada       Track = "canada"
	TrackSpain        Track = "spain"
	TrackAustria      Track = "austria"
	TrackGreatBritain Track = "great_britain"
	TrackHungary      Track = "hungary"
	TrackBelgium      Track = "belgium"
	TrackNetherlands  Track = "netherlands"
	TrackMonza        Track = "monza"
	TrackAzerbaijan   Track = "azerbaijan"
	TrackSingapore    Track = "singapore"
	TrackTexas        Track = "texas"
	TrackMexico       Track = "mexico"
	TrackLasVegas     Track = "las_vegas"
	TrackAbuDhabi     Track = "abu_dhabi"
)

type trackInfo struct {
	display string
	flag    string
}

var trackOrder = []Track{
	TrackBahrain, TrackJeddah, TrackAustralia, TrackJapan, TrackChina,
	TrackMiami, TrackImola, TrackMonaco, TrackCanada, TrackSpain,
	TrackAustria, TrackGreatBritain, TrackHungary, TrackBelgium,
	TrackNetherlands, TrackMonza, TrackAzerbaijan, TrackSingapore,
	TrackTexas, TrackMexico, TrackLasVegas, TrackAbuDhabi,
}

var trackTable = map[Track]trackInfo{
	TrackBahrain:      {"Bahrain", ":flag_bh:"},
	TrackJeddah:       {"Jeddah", ":flag_sa:"},
	TrackAustralia:    {"Australia", ":flag_au:"},
	TrackJapan:        {"Japan", ":flag_jp:"},
	TrackChina:        {"China", ":flag_cn:"},
	TrackMiami:        {"Miami", ":flag_us:"},
	TrackImola:        {"Imola", ":flag_it:"},
	TrackMonaco:       {"Monaco", ":flag_mc:"},
	TrackCanada:       {"Canada", ":flag_ca:"},
	TrackSpain:        {"Spain", ":flag_es:"},
	TrackAustria:      {"Austria", ":flag_at:"},
	TrackGreatBritain: {"Great Britain", ":flag_gb:"},
	TrackHungary:      {"Hungary", ":flag_hu:"},
	TrackBelgium:      {"Belgium", ":flag_be:"},
	TrackNetherlands:  {"Netherlands", ":flag_nl:"},
	TrackMonza:        {"Monza", ":flag_it:"},
	TrackAzerbaijan:   {"Azerbaijan", ":flag_az:"},
	TrackSingapore:    {"Singapore", ":flag_sg:"},
	TrackTexas:        {"Texas", ":flag_us:"},
	TrackMexico:       {"Mexico", ":flag_mx:"},
	TrackLasVegas:     {"Las Vegas", ":flag_us:"},
	TrackAbuDhabi:     {"Abu Dhabi", ":flag_ae:"},
}

// Display returns the human-readable track name.
func (t Track) Display() string { return trackTable[t].display }

// Flag returns the flag emoji shortcode for the track's country, or a
// checkered flag for anything unmapped.
func (t Track) Flag() string {
	if info, ok := trackTable[t]; ok {
		return info.flag
	}
	return ":checkered_flag:"
}

// TimeSlot is one of the offered start times.
type TimeSlot string

const TimeSlotTBA TimeSlot = "tba"

var timeSlotOrder = []TimeSlot{
	TimeSlotTBA,
	"1600", "1630", "1700", "1730", "1800", "1830", "1900", "1930",
	"2000", "2030", "2100", "2130", "2200", "2230", "2300",
}

// Display returns the slot as shown to users.
func (s TimeSlot) Display() string {
	if s == TimeSlotTBA {
		return "Upřesníme později"
	}
	if len(s) != 4 {
		return string(s)
	}
	return string(s[:2]) + ":" + string(s[2:])
}

// QualifyingFormat is the qualifying length for a practice.
type QualifyingFormat string

const (
	QualifyingNone    QualifyingFormat = "none"
	QualifyingOneShot QualifyingFormat = "oneshot"
	QualifyingShort   QualifyingFormat = "short"
	QualifyingFull    QualifyingFormat = "full"
)

var qualifyingOrder = []QualifyingFormat{
	QualifyingNone, QualifyingOneShot, QualifyingShort, QualifyingFull,
}

var qualifyingTable = map[QualifyingFormat]string{
	QualifyingNone:    "None",
	QualifyingOneShot: "One Shot",
	QualifyingShort:   "Short",
	QualifyingFull:    "Full",
}

// Display returns the human-readable qualifying format.
func (q QualifyingFormat) Display() string { return qualifyingTable[q] }

// RaceFormat is the race length for a practice.
type RaceFormat string

const (
	RaceVeryShort RaceFormat = "very_short"
	RaceShort     RaceFormat = "short"
	RaceMedium    RaceFormat = "medium"
	RaceLong      RaceFormat = "long"
	RaceFull      RaceFormat = "full"
)

var raceOrder = []RaceFormat{RaceVeryShort, RaceShort, RaceMedium, RaceLong, RaceFull}

var raceTable = map[RaceFormat]string{
	RaceVeryShort: "5 laps",
	RaceShort:     "25%",
	RaceMedium:    "35%",
	RaceLong:      "50%",
	RaceFull:      "100%",
}

// Display returns the human-readable race format.
func (r RaceFormat) Display() string { return raceTable[r] }

// TrackChoices returns the advertised track options, in calendar order.
func TrackChoices() []gateway.Choice {
	out := make([]gateway.Choice, 0, len(trackOrder))
	for _, t := range trackOrder {
		out = append(out, gateway.Choice{Name: t.Display(), Value: string(t)})
	}
	return out
}

// TimeSlotChoices returns the advertised time slot options.
func TimeSlotChoices() []gateway.Choice {
	out := make([]gateway.Choice, 0, len(timeSlotOrder))
	for _, s := range timeSlotOrder {
		out = append(out, gateway.Choice{Name: s.Display(), Value: string(s)})
	}
	return out
}

// QualifyingChoices returns the advertised qualifying format options.
func QualifyingChoices() []gateway.Choice {
	out := make([]gateway.Choice, 0, len(qualifyingOrder))
	for _, q := range qualifyingOrder {
		out = append(out, gateway.Choice{Name: q.Display(), Value: string(q)})
	}
	return out
}

// RaceChoices returns the advertised race format options.
func RaceChoices() []gateway.Choice {
	out := make([]gateway.Choice, 0, len(raceOrder))
	for _, r := range raceOrder {
		out = append(out, gateway.Choice{Name: r.Display(), Value: string(r)})
	}
	return out
}

// Interface compliance
var (
	_ Displayable = Track("")
	_ Displayable = TimeSlot("")
	_ Displayable = QualifyingFormat("")
	_ Displayable = RaceFormat("")
)
