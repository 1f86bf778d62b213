// Package tickers lists the IDX symbols the worker knows about.
package tickers

import "strings"

// Default is the set ingested and forecast when no tickers are configured.
var Default = []string{"BBCA.JK", "TLKM.JK", "GOTO.JK", "BMRI.JK", "ASII.JK"}

// Sector groups, LQ45 plus popular second liners.
var sectors = []struct {
	Name    string
	Symbols []string
}{
	{"Banks", []string{"BBCA.JK", "BBRI.JK", "BMRI.JK", "BBNI.JK"}},
	{"Telco", []string{"TLKM.JK", "ISAT.JK", "EXCL.JK", "MTEL.JK"}},
	{"Tech", []string{"GOTO.JK", "EMTK.JK", "BUKA.JK", "BELI.JK"}},
	{"Auto & Industrial", []string{"ASII.JK", "UNTR.JK", "AUTO.JK", "DRMA.JK"}},
	{"Consumer Goods", []string{"ICBP.JK", "INDF.JK", "UNVR.JK", "MYOR.JK", "CMRY.JK", "GOOD.JK",
		"GGRM.JK", "HMSP.JK", "KLBF.JK", "SIDO.JK"}},
	{"Mining & Energy", []string{"ADRO.JK", "PTBA.JK", "ITMG.JK", "HRUM.JK", "INDY.JK",
		"PGAS.JK", "AKRA.JK", "MEDC.JK", "ELSA.JK"}},
	{"Metals & Minerals", []string{"ANTM.JK", "INCO.JK", "TINS.JK", "MDKA.JK", "BRMS.JK", "AMMN.JK", "MBMA.JK"}},
	{"Infrastructure", []string{"JSMR.JK", "WIKA.JK", "PTPP.JK", "ADHI.JK", "SMGR.JK", "INTP.JK"}},
	{"Property", []string{"CTRA.JK", "BSDE.JK", "PWON.JK", "SMRA.JK", "ASRI.JK"}},
	{"Retail", []string{"AMRT.JK", "MAPI.JK", "ACES.JK", "LPPF.JK", "ERAA.JK"}},
	{"Poultry", []string{"CPIN.JK", "JPFA.JK"}},
	{"Others", []string{"TPIA.JK", "BRPT.JK", "BREN.JK", "CUAN.JK", "PANI.JK",
		"BBTN.JK", "BRIS.JK", "BTPS.JK", "PNBN.JK", "BDMN.JK",
		"SRTG.JK", "TBIG.JK", "TOWR.JK", "SCMA.JK", "MNCN.JK",
		"ARTO.JK", "INKP.JK", "TKIM.JK"}},
}

var bySymbol = func() map[string]string {
	m := make(map[string]string)
	for _, s := range sectors {
		for _, sym := range s.Symbols {
			m[sym] = s.Name
		}
	}
	return m
}()

// All returns every known symbol in sector order.
func All() []string {
	var out []string
	for _, s := range sectors {
		out = append(out, s.Symbols...)
	}
	return out
}

// Sector returns the sector of symbol, or "" when unknown.
func Sector(symbol string) string {
	return bySymbol[strings.ToUpper(symbol)]
}

// Parse splits a comma- or space-separated list, upper-casing and
// dropping blanks and duplicates.
func Parse(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
