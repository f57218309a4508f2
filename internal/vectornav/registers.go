package vectornav

// RegisterID is a VN-310 configuration or measurement register.
type RegisterID int

const (
	RegUserTag                       RegisterID = 0
	RegModelNumber                   RegisterID = 1
	RegHardwareRevision              RegisterID = 2
	RegSerialNumber                  RegisterID = 3
	RegFirmwareVersion               RegisterID = 4
	RegSerialBaudRate                RegisterID = 5
	RegAsyncDataOutputType           RegisterID = 6
	RegAsyncDataOutputFrequency      RegisterID = 7
	RegMagnetometerCompensation      RegisterID = 23
	RegAccelerometerCompensation     RegisterID = 25
	RegReferenceFrameRotation        RegisterID = 26
	RegCommunicationProtocolControl  RegisterID = 30
	RegSynchronizationControl        RegisterID = 32
	RegSynchronizationStatus         RegisterID = 33
	RegMagnetometerCalibration       RegisterID = 44
	RegCalculatedMagnetometerCal     RegisterID = 47
	RegIMUMeasurements               RegisterID = 54
	RegGNSSConfiguration             RegisterID = 55
	RegGNSSAntennaAOffset            RegisterID = 57
	RegGNSSSolutionLLA               RegisterID = 58
	RegGNSSSolutionECEF              RegisterID = 59
	RegINSSolutionLLA                RegisterID = 63
	RegINSSolutionECEF               RegisterID = 64
	RegINSBasicConfiguration         RegisterID = 67
	RegINSStateLLA                   RegisterID = 72
	RegINSStateECEF                  RegisterID = 73
	RegStartupFilterBiasEstimate     RegisterID = 74
	RegBinaryOutput1                 RegisterID = 75
	RegBinaryOutput2                 RegisterID = 76
	RegBinaryOutput3                 RegisterID = 77
	RegDeltaThetaDeltaVelocity       RegisterID = 80
	RegDeltaThetaDeltaVelocityConfig RegisterID = 82
	RegGyroCompensation              RegisterID = 84
	RegIMUFilteringConfiguration     RegisterID = 85
	RegGNSSCompassSignalHealth       RegisterID = 86
	RegGNSSCompassBaseline           RegisterID = 93
	RegGNSSCompassEstimatedBaseline  RegisterID = 97
	RegGNSSCompassStartupStatus      RegisterID = 98
	RegNMEAOutput1                   RegisterID = 101
	RegNMEAOutput2                   RegisterID = 102
	RegGNSS2SolutionLLA              RegisterID = 103
	RegGNSS2SolutionECEF             RegisterID = 104
)

// AsyncMode selects which serial ports carry asynchronous output.
type AsyncMode int

const (
	AsyncModeNone      AsyncMode = 0
	AsyncModePort1     AsyncMode = 1
	AsyncModePort2     AsyncMode = 2
	AsyncModeBothPorts AsyncMode = 3
)

// RateDivisor divides the IMU rate for binary output.
type RateDivisor int

const (
	RateDivisor1   RateDivisor = 1
	RateDivisor2   RateDivisor = 2
	RateDivisor4   RateDivisor = 4
	RateDivisor8   RateDivisor = 8
	RateDivisor16  RateDivisor = 16
	RateDivisor32  RateDivisor = 32
	RateDivisor64  RateDivisor = 64
	RateDivisor128 RateDivisor = 128
)

// Configuration 0 binary output: output groups and per-group field masks,
// sent as hex.
const (
	config0OutputGroup = 0x0012
	config0TimeFields  = 0x0003
	config0AttFields   = 0x0006
)

var validOutputFrequencies = []int{1, 2, 4, 5, 10, 20, 25, 40, 50, 100, 200}

var validBaudRates = []int{9600, 19200, 38400, 57600, 115200, 128000, 230400, 460800}

// ValidOutputFrequencies lists the async output rates (Hz) the device accepts.
func ValidOutputFrequencies() []int {
	return append([]int(nil), validOutputFrequencies...)
}

// ValidBaudRates lists the serial rates the device accepts.
func ValidBaudRates() []int {
	return append([]int(nil), validBaudRates...)
}

func IsValidOutputFrequency(hz int) bool {
	for _, v := range validOutputFrequencies {
		if v == hz {
			return true
		}
	}
	return false
}

func IsValidBaudRate(baud int) bool {
	for _, v := range validBaudRates {
		if v == baud {
			return true
		}
	}
	return false
}
