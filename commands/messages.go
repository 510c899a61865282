package commands

import (
	"strconv"
	"strings"

	"github.com/grl-racing/grlbot/gateway"
)

// Fixed user-visible texts for the practice flow.
const (
	// RoleSelectPrompt asks the creator to pick ping roles.
	RoleSelectPrompt = "Vyber prosím role, které chceš pingnout nebo pokračuj bez výběru:"
	// NoRolesAvailablePrompt replaces RoleSelectPrompt when the tenant has
	// no driver roles to offer.
	NoRolesAvailablePrompt = "Nenalezena žádná role k výběru, můžeš pokračovat bez rolí:"
	// FlowExpiredMessage is shown when the pending practice data is gone,
	// typically because the creator waited too long.
	FlowExpiredMessage = "Data pro trénink nenalezena. Prosím spusť /practice znovu."
	// CancelConfirmation acknowledges a successful cancel to the requester.
	CancelConfirmation = "Trénink zrušen."
)

// CreationConfirmation is the text the ephemeral role prompt is edited
// into once the announcement is published.
func CreationConfirmation(creator gateway.User, rolesSelected bool) string {
	if rolesSelected {
		return creator.Mention() + " vytvořil trénink! Role vybrány! Trénink vytvořen."
	}
	return creator.Mention() + " vytvořil trénink! Žádné role vybrány! Trénink vytvořen."
}

// TrainingAnnouncement renders the public message advertising a practice.
func TrainingAnnouncement(args *PracticeArgs, roles []gateway.Role, creator gateway.User) string {
	track := Track(args.Track)
	flag := track.Flag()

	var b strings.Builder
	b.WriteString(flag + " " + track.Display() + " - trénink " + flag + " \n\n")
	b.WriteString("🕗 " + args.Date + " " + TimeSlot(args.Time).Display() + " 🕗\n\n")
	b.WriteString("🏎️  " + QualifyingFormat(args.QualifyingFormat).Display() + " Q - " + RaceFormat(args.RaceFormat).Display() + " Race 🏎️\n\n")
	b.WriteString("🛠️ Ligový assisty 🛠️\n\n")
	b.WriteString(pingRoles(roles) + "\n\n")
	b.WriteString("Dobrovolná účast, prosím potvrď\n")
	b.WriteString("Trénink proběhne při účasti alespoň " + strconv.Itoa(args.DriversRequired) + " pilotů\n")
	if args.Comment != "" {
		b.WriteString("\n*" + args.Comment + "*\n")
	}
	b.WriteString("*Trénink vytvořil:* " + creator.Mention() + "\n")
	return b.String()
}

func pingRoles(roles []gateway.Role) string {
	mentions := make([]string, 0, len(roles))
	for _, r := range roles {
		mentions = append(mentions, r.Mention())
	}
	return strings.Join(mentions, " ")
}
