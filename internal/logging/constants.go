package logging

// Standard field names, kept stable so log output can be filtered.
const (
	FieldFile         = "file_path"
	FieldExtractor    = "extractor"
	FieldBank         = "bank"
	FieldCategory     = "category"
	FieldSource       = "source"
	FieldReason       = "reason"
	FieldOperation    = "operation"
	FieldError        = "error"
	FieldDuration     = "duration_ms"
	FieldCount        = "count"
	FieldErrors       = "errors"
	FieldPages        = "pages"
	FieldLines        = "lines"
	FieldUser         = "user"
	FieldBatchID      = "batch_id"
	FieldDelimiter    = "delimiter"
	FieldInputFile    = "input_file"
	FieldOutputFile   = "output_file"
	FieldLearnedKey   = "learned_key"
	FieldDescription  = "description"
	FieldRound        = "round"
	FieldConnectivity = "connectivity"
)
