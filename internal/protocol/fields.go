package protocol

// FieldCount is the number of comma-separated fields in one device frame.
const FieldCount = 6

const (
	Delimiter   = ","
	HeaderToken = "Time_ms"
)

// DeviceColumns is the header line the controller prints at boot and may
// re-issue mid-stream.
var DeviceColumns = []string{
	"Time_ms",
	"LevelX",
	"LevelY",
	"inputVoltageX",
	"inputVoltageY",
	"inputVoltageSUM",
}

// LogColumns is the fixed header row of the persisted log. Downstream
// tools select columns by these names.
var LogColumns = []string{
	"PC_Timestamp",
	"Device_Time_ms",
	"LevelX",
	"LevelY",
	"inputVoltageX",
	"inputVoltageY",
	"inputVoltageSUM",
}

// ReceiptTimeLayout renders receipt times as local ISO-8601 with
// microsecond precision.
const ReceiptTimeLayout = "2006-01-02T15:04:05.000000"
