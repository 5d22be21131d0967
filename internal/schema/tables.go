package schema

// Field layout tables, compiled in at package init. Adding a record type or
// a new version only means extending v21Tables / v22Tables — no other
// component needs to change (spec.md §4.1).
//
// Common header fields shared by every detail record inside a transaction:
// record_type(1-3), transaction_sequence#(4-11), record_sequence#(12-19).
// Structural bounding records (HDR/GRH/GRT/TRL) do not carry these.

func detailHeader() []FieldSpec {
	return []FieldSpec{
		{Name: "record_type", Start: 1, Length: 3, Format: Alphanumeric, Mandatory: true},
		{Name: "transaction_sequence", Start: 4, Length: 8, Format: Numeric, Mandatory: true},
		{Name: "record_sequence", Start: 12, Length: 8, Format: Numeric, Mandatory: true},
	}
}

// withDetailHeader prepends the common detail-record header to fields,
// whose Start positions are absolute 1-indexed byte positions beginning
// at byte 20.
func withDetailHeader(fields ...FieldSpec) []FieldSpec {
	out := detailHeader()
	out = append(out, fields...)
	return out
}

var (
	hdrFields = []FieldSpec{
		{Name: "record_type", Start: 1, Length: 3, Format: Alphanumeric, Mandatory: true},
		{Name: "sender_type", Start: 4, Length: 2, Format: Alphanumeric, Mandatory: true},
		{Name: "sender_id", Start: 6, Length: 9, Format: Alphanumeric, Mandatory: true},
		{Name: "sender_name", Start: 15, Length: 45, Format: Alphanumeric, Mandatory: true},
		{Name: "edi_standard_version", Start: 60, Length: 5, Format: Alphanumeric, Mandatory: true},
		{Name: "creation_date", Start: 65, Length: 8, Format: Date, Mandatory: true},
		{Name: "creation_time", Start: 73, Length: 6, Format: Time, Mandatory: true},
		{Name: "transmission_date", Start: 79, Length: 8, Format: Date, Mandatory: true},
		{Name: "character_set", Start: 87, Length: 15, Format: Alphanumeric},
		{Name: "version_number", Start: 102, Length: 5, Format: Alphanumeric, Mandatory: true},
	}

	grhFields = []FieldSpec{
		{Name: "record_type", Start: 1, Length: 3, Format: Alphanumeric, Mandatory: true},
		{Name: "transaction_type", Start: 4, Length: 3, Format: Alphanumeric, Mandatory: true},
		{Name: "group_id", Start: 7, Length: 5, Format: Numeric, Mandatory: true},
		{Name: "version_number", Start: 12, Length: 5, Format: Alphanumeric, Mandatory: true},
	}

	grtFields = []FieldSpec{
		{Name: "record_type", Start: 1, Length: 3, Format: Alphanumeric, Mandatory: true},
		{Name: "group_id", Start: 4, Length: 5, Format: Numeric, Mandatory: true},
		{Name: "transaction_count", Start: 9, Length: 8, Format: Numeric, Mandatory: true},
		{Name: "record_count", Start: 17, Length: 8, Format: Numeric, Mandatory: true},
	}

	trlFields = []FieldSpec{
		{Name: "record_type", Start: 1, Length: 3, Format: Alphanumeric, Mandatory: true},
		{Name: "group_count", Start: 4, Length: 5, Format: Numeric, Mandatory: true},
		{Name: "transaction_count", Start: 9, Length: 8, Format: Numeric, Mandatory: true},
		{Name: "record_count", Start: 17, Length: 8, Format: Numeric, Mandatory: true},
	}

	// Work registration transaction header (shared layout for NWR/REV/WRK).
	workHeaderTail = []FieldSpec{
		{Name: "work_title", Start: 20, Length: 60, Format: Alphanumeric, Mandatory: true},
		{Name: "language_code", Start: 80, Length: 2, Format: LookupCode, Lookup: "Language"},
		{Name: "submitter_work_number", Start: 82, Length: 14, Format: Alphanumeric, Mandatory: true},
		{Name: "iswc", Start: 96, Length: 11, Format: Alphanumeric},
		{Name: "copyright_date", Start: 107, Length: 8, Format: Date},
		{Name: "distribution_category", Start: 115, Length: 3, Format: LookupCode, Lookup: "MusicalWorkDistributionCategory"},
		{Name: "duration", Start: 118, Length: 6, Format: Duration},
		{Name: "recorded_indicator", Start: 124, Length: 1, Format: Flag},
		{Name: "version_type", Start: 125, Length: 3, Format: LookupCode, Lookup: "VersionType", Mandatory: true},
	}

	// ISW/ISR: structural-only per spec.md §9 open question — decoded for
	// structural purposes, not validated against a sharing schema.
	iswHeaderTail = []FieldSpec{
		{Name: "submitter_work_number", Start: 20, Length: 14, Format: Alphanumeric, Mandatory: true},
		{Name: "iswc", Start: 34, Length: 11, Format: Alphanumeric, Mandatory: true},
	}
	isrHeaderTail = []FieldSpec{
		{Name: "submitter_work_number", Start: 20, Length: 14, Format: Alphanumeric, Mandatory: true},
		{Name: "recording_id", Start: 34, Length: 14, Format: Alphanumeric},
	}

	altFields = withDetailHeader(
		FieldSpec{Name: "alternate_title", Start: 20, Length: 60, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "title_type", Start: 80, Length: 2, Format: LookupCode, Lookup: "TitleType"},
		FieldSpec{Name: "language_code", Start: 82, Length: 2, Format: LookupCode, Lookup: "Language"},
	)

	ewtFields = withDetailHeader(
		FieldSpec{Name: "entire_work_title", Start: 20, Length: 60, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "iswc", Start: 80, Length: 11, Format: Alphanumeric},
		FieldSpec{Name: "writer_1_last_name", Start: 91, Length: 45, Format: Alphanumeric},
		FieldSpec{Name: "writer_1_first_name", Start: 136, Length: 30, Format: Alphanumeric},
	)

	verFields = withDetailHeader(
		FieldSpec{Name: "original_work_title", Start: 20, Length: 60, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "iswc", Start: 80, Length: 11, Format: Alphanumeric},
	)

	perFields = withDetailHeader(
		FieldSpec{Name: "performing_artist_last_name", Start: 20, Length: 45, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "performing_artist_first_name", Start: 65, Length: 30, Format: Alphanumeric},
		FieldSpec{Name: "performing_artist_ipi_name", Start: 95, Length: 11, Format: Numeric},
	)

	recFields = withDetailHeader(
		FieldSpec{Name: "release_date", Start: 20, Length: 8, Format: Date},
		FieldSpec{Name: "release_title", Start: 28, Length: 60, Format: Alphanumeric},
		FieldSpec{Name: "label_name", Start: 88, Length: 60, Format: Alphanumeric},
		FieldSpec{Name: "isrc", Start: 148, Length: 12, Format: Alphanumeric},
	)

	ornFields = withDetailHeader(
		FieldSpec{Name: "intended_purpose", Start: 20, Length: 3, Format: LookupCode, Lookup: "IntendedPurpose", Mandatory: true},
		FieldSpec{Name: "production_title", Start: 23, Length: 60, Format: Alphanumeric},
		FieldSpec{Name: "cd_identifier", Start: 83, Length: 15, Format: Alphanumeric},
	)

	// SWR/OWR: writer controlled/other writer. Share fields are six-digit
	// numeric with three implied decimal places (spec.md §4.4).
	// Share fields are six-digit numeric with three implied decimal
	// places (spec.md §4.4), e.g. "050000" == 50.000%.
	swrFields = withDetailHeader(
		FieldSpec{Name: "interested_party_number", Start: 20, Length: 9, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "writer_last_name", Start: 29, Length: 45, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "writer_first_name", Start: 74, Length: 30, Format: Alphanumeric},
		FieldSpec{Name: "writer_designation", Start: 104, Length: 2, Format: LookupCode, Lookup: "WriterRole", Mandatory: true},
		FieldSpec{Name: "pr_ownership_share", Start: 106, Length: 6, Format: Numeric},
		FieldSpec{Name: "mr_ownership_share", Start: 112, Length: 6, Format: Numeric},
		FieldSpec{Name: "sr_ownership_share", Start: 118, Length: 6, Format: Numeric},
	)
	owrFields = swrFields

	// SPU/OPU: publisher controlled/other publisher.
	spuFields = withDetailHeader(
		FieldSpec{Name: "interested_party_number", Start: 20, Length: 9, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "publisher_name", Start: 29, Length: 45, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "publisher_type", Start: 74, Length: 2, Format: LookupCode, Lookup: "PublisherType", Mandatory: true},
		FieldSpec{Name: "pr_ownership_share", Start: 76, Length: 6, Format: Numeric},
		FieldSpec{Name: "mr_ownership_share", Start: 82, Length: 6, Format: Numeric},
		FieldSpec{Name: "sr_ownership_share", Start: 88, Length: 6, Format: Numeric},
	)
	opuFields = spuFields

	// SWT/OWT: writer territory of control (collection shares).
	swtFields = withDetailHeader(
		FieldSpec{Name: "interested_party_number", Start: 20, Length: 9, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "pr_collection_share", Start: 29, Length: 6, Format: Numeric},
		FieldSpec{Name: "mr_collection_share", Start: 35, Length: 6, Format: Numeric},
		FieldSpec{Name: "sr_collection_share", Start: 41, Length: 6, Format: Numeric},
		FieldSpec{Name: "territory_code", Start: 47, Length: 4, Format: LookupCode, Lookup: "Territory", Mandatory: true},
	)
	owtFields = swtFields

	// SPT/OPT: publisher territory of control.
	sptFields = withDetailHeader(
		FieldSpec{Name: "interested_party_number", Start: 20, Length: 9, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "pr_collection_share", Start: 29, Length: 6, Format: Numeric},
		FieldSpec{Name: "mr_collection_share", Start: 35, Length: 6, Format: Numeric},
		FieldSpec{Name: "sr_collection_share", Start: 41, Length: 6, Format: Numeric},
		FieldSpec{Name: "territory_code", Start: 47, Length: 4, Format: LookupCode, Lookup: "Territory", Mandatory: true},
	)
	optFields = sptFields

	pwrFields = withDetailHeader(
		FieldSpec{Name: "publisher_ip_number", Start: 20, Length: 9, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "publisher_name", Start: 29, Length: 45, Format: Alphanumeric},
		FieldSpec{Name: "writer_ip_number", Start: 74, Length: 9, Format: Alphanumeric, Mandatory: true},
	)

	comFields = withDetailHeader(
		FieldSpec{Name: "title", Start: 20, Length: 60, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "composite_type", Start: 80, Length: 3, Format: LookupCode, Lookup: "CompositeType"},
	)

	indFields = withDetailHeader(
		FieldSpec{Name: "instrument_code", Start: 20, Length: 3, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "number_of_players", Start: 23, Length: 3, Format: Numeric},
	)

	insFields = withDetailHeader(
		FieldSpec{Name: "number_of_voices", Start: 20, Length: 3, Format: Numeric},
		FieldSpec{Name: "standard_instrumentation_type", Start: 23, Length: 3, Format: Alphanumeric},
	)
)

func workHeader() []FieldSpec {
	return withDetailHeader(workHeaderTail...)
}

var v21Tables = map[string][]FieldSpec{
	"HDR": hdrFields,
	"GRH": grhFields,
	"GRT": grtFields,
	"TRL": trlFields,
	"NWR": workHeader(),
	"REV": workHeader(),
	"WRK": workHeader(),
	"ISW": withDetailHeader(iswHeaderTail...),
	"ISR": withDetailHeader(isrHeaderTail...),
	"ALT": altFields,
	"EWT": ewtFields,
	"VER": verFields,
	"PER": perFields,
	"REC": recFields,
	"ORN": ornFields,
	"SWR": swrFields,
	"OWR": owrFields,
	"SPU": spuFields,
	"OPU": opuFields,
	"SWT": swtFields,
	"OWT": owtFields,
	"SPT": sptFields,
	"OPT": optFields,
	"PWR": pwrFields,
	"COM": comFields,
	"IND": indFields,
	"INS": insFields,
}

// v22 differs from v21 only in the fields the CISAC 2.2 revision actually
// widened: REC gained a longer ISRC-adjacent media-type tail and SPT/OPT
// gained a "shares change" flag. Every other record type reuses the 2.1
// layout verbatim (spec.md §4.1: version differences are pure data).
var v22Tables = func() map[string][]FieldSpec {
	t := make(map[string][]FieldSpec, len(v21Tables))
	for k, v := range v21Tables {
		t[k] = v
	}
	t["REC"] = withDetailHeader(
		FieldSpec{Name: "release_date", Start: 20, Length: 8, Format: Date},
		FieldSpec{Name: "release_title", Start: 28, Length: 60, Format: Alphanumeric},
		FieldSpec{Name: "label_name", Start: 88, Length: 60, Format: Alphanumeric},
		FieldSpec{Name: "isrc", Start: 148, Length: 12, Format: Alphanumeric},
		FieldSpec{Name: "recording_format", Start: 160, Length: 1, Format: Alphanumeric},
	)
	t["SPT"] = withDetailHeader(
		FieldSpec{Name: "interested_party_number", Start: 20, Length: 9, Format: Alphanumeric, Mandatory: true},
		FieldSpec{Name: "pr_collection_share", Start: 29, Length: 6, Format: Numeric},
		FieldSpec{Name: "mr_collection_share", Start: 35, Length: 6, Format: Numeric},
		FieldSpec{Name: "sr_collection_share", Start: 41, Length: 6, Format: Numeric},
		FieldSpec{Name: "territory_code", Start: 47, Length: 4, Format: LookupCode, Lookup: "Territory", Mandatory: true},
		FieldSpec{Name: "shares_change", Start: 51, Length: 1, Format: Flag},
	)
	t["OPT"] = t["SPT"]
	return t
}()
