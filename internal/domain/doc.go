// Package domain models decoded SAME/EAS alerts and the rules that turn them
// into mesh text messages.
//
// # SAME Header Conventions
//
// A SAME header looks like:
//
//	ZCZC-WXR-TOR-048081-048113+0030-1051700-KFWD/NWS-
//
// and carries the originator (WXR), the event code (TOR), one or more
// location codes, a purge time (+HHMM), the issue time (JJJHHMM, Julian day
// and UTC hour/minute) and the sending station's callsign.
//
// Location codes:
//
//	PSSCCC  →  P = county subdivision, SS = state FIPS, CCC = county FIPS.
//	Subdivision digits map to compass areas of the county:
//	  0 whole county | 1 NW | 2 N | 3 NE | 4 W | 5 Central | 6 E | 7 SW | 8 S | 9 SE
//	The bundled table stores whole counties only, so lookups replace the
//	subdivision digit with 0 before searching. "000000" means the entire US.
//
// Significance:
//
//	Every event code belongs to one tier: Test, Statement, Watch, Warning,
//	Emergency. Codes the relay does not know are classified Unknown and
//	presented with the most visible (urgent) prefix.
//
// # Channels
//
// Mesh channels are indexes 0–7. Alerts go to the alert channel; Test-tier
// alerts go to the test channel, or are dropped when none is configured.
package domain
