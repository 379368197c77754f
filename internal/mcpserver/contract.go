package mcpserver

// RecordFormatContract describes the journal records the ingest_event tool
// accepts and how the scan tree addresses systems and bodies.
const RecordFormatContract = `# Orrery Record Format

Every record is one JSON object as written by the game to a Journal.*.log
file. The "event" and "timestamp" fields are REQUIRED.

## Recognised events

- Travel: FSDJump, Location, CarrierJump. These start a new history entry
  and decide which system later scans belong to.
- Bodies: Scan, ScanBaryCentre.
- Collateral: SAASignalsFound, FSSBodySignals, ScanOrganic, ApproachBody,
  Touchdown, CodexEntry, FSSDiscoveryScan, FSSSignalDiscovered,
  SAAScanComplete.

Any other event is accepted by the journal tailer and skipped.

## Example

` + "```" + `json
{"timestamp":"2026-01-10T12:00:00Z","event":"FSDJump","StarSystem":"Sol","SystemAddress":10477373803}
{"timestamp":"2026-01-10T12:01:00Z","event":"Scan","BodyName":"Sol 3","BodyID":3,"StarSystem":"Sol","SystemAddress":10477373803,"PlanetClass":"Earthlike body","MassEM":1.0,"Parents":[{"Star":0}]}
` + "```" + `

## Rules

1. Body names start with the system name. "Sol 3 a" is moon "a" of planet
   "3"; "Sol A 1" is planet "1" of star "A".
2. Scans arriving before any travel event are kept and attached once the
   system is known.
3. A record that is byte-identical to one already stored is a duplicate and
   changes nothing.
4. Systems are looked up by decimal address or by name (case-insensitive).
`
