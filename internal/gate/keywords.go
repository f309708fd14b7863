package gate

import "github.com/oddsflow/rosterwatch/internal/monitor"

// term is one weighted, lowercased phrase in the relevance vocabulary. The
// tables below cover the languages of the monitored leagues; keeping them as
// data keeps the scoring loop language-agnostic.
type term struct {
	phrase   string
	weight   float64
	category monitor.Category
}

var relevanceTerms = []term{
	// English
	{"ruled out", 0.30, monitor.CategoryAbsence},
	{"will miss", 0.30, monitor.CategoryAbsence},
	{"out injured", 0.30, monitor.CategoryAbsence},
	{"sidelined", 0.25, monitor.CategoryAbsence},
	{"injury", 0.25, monitor.CategoryAbsence},
	{"injured", 0.25, monitor.CategoryAbsence},
	{"doubtful", 0.20, monitor.CategoryAbsence},
	{"unavailable", 0.20, monitor.CategoryAbsence},
	{"illness", 0.15, monitor.CategoryAbsence},
	{"suspended", 0.30, monitor.CategorySuspension},
	{"suspension", 0.25, monitor.CategorySuspension},
	{"banned", 0.25, monitor.CategorySuspension},
	{"red card", 0.15, monitor.CategorySuspension},
	{"disciplinary", 0.15, monitor.CategorySuspension},
	{"starting lineup", 0.25, monitor.CategoryRosterChange},
	{"lineup change", 0.30, monitor.CategoryRosterChange},
	{"roster move", 0.30, monitor.CategoryRosterChange},
	{"called up", 0.20, monitor.CategoryRosterChange},
	{"left out of the squad", 0.30, monitor.CategoryRosterChange},
	{"dropped from", 0.25, monitor.CategoryRosterChange},
	{"rotation", 0.10, monitor.CategoryRosterChange},

	// Spanish
	{"lesión", 0.25, monitor.CategoryAbsence},
	{"lesionado", 0.25, monitor.CategoryAbsence},
	{"baja confirmada", 0.30, monitor.CategoryAbsence},
	{"no jugará", 0.30, monitor.CategoryAbsence},
	{"se pierde el partido", 0.30, monitor.CategoryAbsence},
	{"sancionado", 0.30, monitor.CategorySuspension},
	{"suspendido", 0.30, monitor.CategorySuspension},
	{"expulsado", 0.20, monitor.CategorySuspension},
	{"alineación", 0.25, monitor.CategoryRosterChange},
	{"convocatoria", 0.20, monitor.CategoryRosterChange},
	{"fuera de la lista", 0.30, monitor.CategoryRosterChange},

	// German
	{"verletzt", 0.25, monitor.CategoryAbsence},
	{"verletzung", 0.25, monitor.CategoryAbsence},
	{"fällt aus", 0.30, monitor.CategoryAbsence},
	{"ausfall", 0.25, monitor.CategoryAbsence},
	{"gesperrt", 0.30, monitor.CategorySuspension},
	{"sperre", 0.25, monitor.CategorySuspension},
	{"aufstellung", 0.25, monitor.CategoryRosterChange},
	{"nicht im kader", 0.30, monitor.CategoryRosterChange},

	// French
	{"blessé", 0.25, monitor.CategoryAbsence},
	{"blessure", 0.25, monitor.CategoryAbsence},
	{"forfait", 0.30, monitor.CategoryAbsence},
	{"absent", 0.20, monitor.CategoryAbsence},
	{"suspendu", 0.30, monitor.CategorySuspension},
	{"composition", 0.20, monitor.CategoryRosterChange},
	{"hors du groupe", 0.30, monitor.CategoryRosterChange},

	// Italian
	{"infortunio", 0.25, monitor.CategoryAbsence},
	{"infortunato", 0.25, monitor.CategoryAbsence},
	{"salta la partita", 0.30, monitor.CategoryAbsence},
	{"squalificato", 0.30, monitor.CategorySuspension},
	{"squalifica", 0.25, monitor.CategorySuspension},
	{"formazione", 0.25, monitor.CategoryRosterChange},
	{"fuori rosa", 0.30, monitor.CategoryRosterChange},

	// Portuguese
	{"lesão", 0.25, monitor.CategoryAbsence},
	{"lesionado", 0.25, monitor.CategoryAbsence},
	{"desfalque", 0.30, monitor.CategoryAbsence},
	{"suspenso", 0.30, monitor.CategorySuspension},
	{"escalação", 0.25, monitor.CategoryRosterChange},
	{"fora do jogo", 0.25, monitor.CategoryRosterChange},
}

// boilerplateMarkers flag navigation chrome and consent banners that slip
// through extraction.
var boilerplateMarkers = []string{
	"cookie settings",
	"accept all cookies",
	"privacy policy",
	"terms of service",
	"all rights reserved",
	"sign in",
	"subscribe now",
	"newsletter",
	"enable javascript",
}
