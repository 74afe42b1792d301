package model

import "strings"

// Resort describes a DVC home resort.
type Resort struct {
	Code string
	Name string
}

// resorts is the fixed enumeration used on the ROFR posting form.
var resorts = []Resort{
	{Code: "AKV", Name: "Animal Kingdom"},
	{Code: "AUL", Name: "Aulani"},
	{Code: "BLT", Name: "Bay Lake Tower"},
	{Code: "BCV", Name: "Beach Club"},
	{Code: "BWV", Name: "Boardwalk"},
	{Code: "VDH", Name: "Disneyland Hotel"},
	{Code: "CFW", Name: "Fort Wilderness Cabins"},
	{Code: "VGC", Name: "Grand Californian"},
	{Code: "VGF", Name: "Grand Floridian"},
	{Code: "HH", Name: "Hilton Head"},
	{Code: "OKW", Name: "Old Key West"},
	{Code: "PVB", Name: "Polynesian"},
	{Code: "RIV", Name: "Riviera"},
	{Code: "SSR", Name: "Saratoga Springs"},
	{Code: "VB", Name: "Vero Beach"},
	{Code: "BRV", Name: "Wilderness Lodge: Boulder Ridge"},
	{Code: "CCV", Name: "Wilderness Lodge: Copper Creek"},
}

// resortAliases maps spellings seen on the forum to their canonical code.
var resortAliases = map[string]string{
	"BRV@WL": "BRV",
	"CCV@WL": "CCV",
	"OKW(E)": "OKW",
	"OKWE":   "OKW",
}

var resortIndex = func() map[string]Resort {
	idx := make(map[string]Resort, len(resorts))
	for _, r := range resorts {
		idx[r.Code] = r
	}
	return idx
}()

// Resorts returns the known resorts in form order.
func Resorts() []Resort {
	out := make([]Resort, len(resorts))
	copy(out, resorts)
	return out
}

// LookupResort returns the resort for an exact canonical code.
func LookupResort(code string) (Resort, bool) {
	r, ok := resortIndex[code]
	return r, ok
}

// ResolveResortAlias maps a known alternate spelling to its canonical code.
func ResolveResortAlias(code string) (string, bool) {
	canonical, ok := resortAliases[strings.ToUpper(code)]
	return canonical, ok
}

// ResortName returns the display name for code, or code itself when unknown.
func ResortName(code string) string {
	if r, ok := resortIndex[code]; ok {
		return r.Name
	}
	return code
}
