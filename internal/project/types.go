// Package project holds the typed project tree: Channel -> Device ->
// (optional Group) -> Tag, parsed once from the project document instead of
// walked live off a GUI tree. The GUI, if any, is one writer of this
// document, not the authoritative store.
package project

// Project is the root of a parsed project document.
type Project struct {
	Name     string        `json:"name" yaml:"name"`
	Channels []Channel     `json:"channels" yaml:"channels"`
	OPCUA    OPCUASettings `json:"opcua_settings" yaml:"opcua_settings"`
}

// Channel is a transport configuration grouping devices that share a serial
// line or TCP bind.
type Channel struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Driver      ChannelDriver `json:"driver" yaml:"driver"`
	Devices     []Device     `json:"devices" yaml:"devices"`
}

// ChannelDriverType enumerates the three supported transports.
type ChannelDriverType string

const (
	DriverRTUSerial  ChannelDriverType = "RTU-serial"
	DriverRTUOverTCP ChannelDriverType = "RTU-over-TCP"
	DriverTCP        ChannelDriverType = "TCP-Ethernet"
)

// ChannelDriver carries the transport-specific parameters. Serial fields
// apply to RTU-serial; TCP fields apply to RTU-over-TCP and TCP-Ethernet.
type ChannelDriver struct {
	Type ChannelDriverType `json:"type" yaml:"type"`

	// Serial (RTU-serial only)
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	Baud     int    `json:"baud,omitempty" yaml:"baud,omitempty"`
	DataBits int    `json:"data_bits,omitempty" yaml:"data_bits,omitempty"`
	Parity   string `json:"parity,omitempty" yaml:"parity,omitempty"` // N, E, O
	StopBits int    `json:"stop_bits,omitempty" yaml:"stop_bits,omitempty"`
	Flow     string `json:"flow,omitempty" yaml:"flow,omitempty"` // none, rts_cts, xon_xoff

	// TCP (RTU-over-TCP and TCP-Ethernet)
	Host            string `json:"host,omitempty" yaml:"host,omitempty"`
	Port_           int    `json:"port_tcp,omitempty" yaml:"port_tcp,omitempty"`
	NetworkAdapter  string `json:"network_adapter,omitempty" yaml:"network_adapter,omitempty"`
}

// Device is a Modbus slave addressed by a unit-id on a channel.
type Device struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	UnitID      int                `json:"unit_id" yaml:"unit_id"`
	Timing      DeviceTiming       `json:"timing" yaml:"timing"`
	DataAccess  DataAccessFlags    `json:"data_access" yaml:"data_access"`
	Encoding    EncodingSettings   `json:"encoding" yaml:"encoding"`
	BlockSizes  BlockSizeLimits    `json:"block_sizes" yaml:"block_sizes"`
	Groups      []Group            `json:"groups,omitempty" yaml:"groups,omitempty"`
	Tags        []Tag              `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DeviceTiming controls connect/request pacing.
type DeviceTiming struct {
	ConnectTimeoutSec     int `json:"connect_timeout_sec" yaml:"connect_timeout_sec"`
	ConnectAttempts       int `json:"connect_attempts" yaml:"connect_attempts"`
	RequestTimeoutMS      int `json:"request_timeout_ms" yaml:"request_timeout_ms"`
	AttemptsBeforeTimeout int `json:"attempts_before_timeout" yaml:"attempts_before_timeout"`
	InterRequestDelayMS   int `json:"inter_request_delay_ms" yaml:"inter_request_delay_ms"`
}

// DataAccessFlags are the 0/1 behavior switches from the device config.
type DataAccessFlags struct {
	ZeroBased    bool `json:"zero_based" yaml:"zero_based"`
	ZeroBasedBit bool `json:"zero_based_bit" yaml:"zero_based_bit"`
	BitWrites    bool `json:"bit_writes" yaml:"bit_writes"`
	Func06       bool `json:"func_06_enabled" yaml:"func_06_enabled"`
	Func05       bool `json:"func_05_enabled" yaml:"func_05_enabled"`
}

// EncodingSettings control the byte/word/dword/bit ordering codec.
type EncodingSettings struct {
	ByteOrder           string `json:"byte_order" yaml:"byte_order"`             // "big" (Enable) | "little" (Disable)
	WordOrder           int    `json:"word_order" yaml:"word_order"`             // 1 = low-high, 0 = high-low
	DwordOrder          int    `json:"dword_order" yaml:"dword_order"`           // 1 = low-high, 0 = high-low
	BitOrder            string `json:"bit_order" yaml:"bit_order"`               // "lsb" | "msb" (Modicon)
	TreatLongsAsDecimals bool  `json:"treat_longs_as_decimals" yaml:"treat_longs_as_decimals"`
}

// BlockSizeLimits cap the per-request register/coil counts used by the
// batch scheduler.
type BlockSizeLimits struct {
	OutCoils int `json:"out_coils" yaml:"out_coils"`
	InCoils  int `json:"in_coils" yaml:"in_coils"`
	IntRegs  int `json:"int_regs" yaml:"int_regs"`
	HoldRegs int `json:"hold_regs" yaml:"hold_regs"`
}

// Group is a purely organisational node; it contributes to a tag's
// tree-path but not to the (channel, device) grouping key.
type Group struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Groups      []Group `json:"groups,omitempty" yaml:"groups,omitempty"`
	Tags        []Tag   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Tag is a named data point with an address, type and polling interval.
type Tag struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Address     string             `json:"address" yaml:"address"`
	DataType    string             `json:"data_type" yaml:"data_type"`
	Access      string             `json:"access" yaml:"access"` // "RO" | "RW"
	ScanRateMS  int                `json:"scan_rate" yaml:"scan_rate"`
	Scaling     *ScalingDescriptor `json:"scaling,omitempty" yaml:"scaling,omitempty"`
}

// ScalingKind enumerates the supported scaling functions.
type ScalingKind string

const (
	ScalingNone       ScalingKind = "None"
	ScalingLinear     ScalingKind = "Linear"
	ScalingSquareRoot ScalingKind = "SquareRoot"
)

// ScalingDescriptor is the user-defined mapping between raw and
// engineering value.
type ScalingDescriptor struct {
	Kind        ScalingKind `json:"kind" yaml:"kind"`
	RawLow      float64     `json:"raw_low" yaml:"raw_low"`
	RawHigh     float64     `json:"raw_high" yaml:"raw_high"`
	ScaledLow   float64     `json:"scaled_low" yaml:"scaled_low"`
	ScaledHigh  float64     `json:"scaled_high" yaml:"scaled_high"`
	ScaledType  string      `json:"scaled_type" yaml:"scaled_type"`
	ClampLow    bool        `json:"clamp_low" yaml:"clamp_low"`
	ClampHigh   bool        `json:"clamp_high" yaml:"clamp_high"`
	Negate      bool        `json:"negate" yaml:"negate"`
	Units       string      `json:"units" yaml:"units"`
}

// OPCUASettings is the project document's opcua_settings block. It is
// parsed and saved with the document; the OPC UA bridge takes its
// host/port/policies from internal/config and does not read this block.
type OPCUASettings struct {
	General          OPCUAGeneral        `json:"general" yaml:"general"`
	Authentication   OPCUAAuthentication `json:"authentication" yaml:"authentication"`
	SecurityPolicies []string            `json:"security_policies" yaml:"security_policies"`
	Certificate      OPCUACertificate    `json:"certificate" yaml:"certificate"`
}

type OPCUAGeneral struct {
	Host              string `json:"host" yaml:"host"`
	Port              int    `json:"port" yaml:"port"`
	AppName           string `json:"app_name" yaml:"app_name"`
	PublishIntervalMS int    `json:"publish_interval_ms" yaml:"publish_interval_ms"`
}

type OPCUAAuthentication struct {
	AllowAnonymous bool   `json:"allow_anonymous" yaml:"allow_anonymous"`
	Username       string `json:"username" yaml:"username"`
	Password       string `json:"password" yaml:"password"`
}

type OPCUACertificate struct {
	Dir          string `json:"dir" yaml:"dir"`
	ValidityDays int    `json:"validity_days" yaml:"validity_days"`
}
