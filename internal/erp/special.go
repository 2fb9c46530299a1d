package erp

// Special object names exposed by the legacy store. Only a few are used by
// the bridge; the table mirrors the store's full registry so lookups by
// symbolic name stay stable across store versions.
const (
	SpecialVorgang = "soVorgang"
	SpecialLager   = "soLager"
)

var specialObjectCodes = map[string]int{
	"soLager":              0,
	"soVorgang":            1,
	"soDokumente":          2,
	"soKontenAnalyse":      3,
	"soAppObject":          4,
	"soWandeln":            5,
	"soDoublette":          6,
	"soEvents":             7,
	"soNachricht":          8,
	"soVariablen":          9,
	"soDrucken":            10,
	"soBanking":            11,
	"soBuchungen":          12,
	"soEBilanz":            13,
	"soOffenePosten":       14,
	"soZahlungsverkehr":    15,
	"soAusgabeVerzeichnis": 16,
	"soTableDefinition":    17,
	"soAdrSpezPr":          18,
	"soModificationMonitor": 19,
	"soProjekte":           20,
}
