package orchestrator

import (
	"fmt"
	"time"

	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

// OS-enforced flag bits.
const (
	flagUserProfileSecure         = 1 << 0
	flagAccessibilityEnabled      = 1 << 1
	flagDeviceAdmin               = 1 << 2
	flagADBEnabled                = 1 << 3
	flagAddUsersFromLockScreen    = 1 << 4
	flagFingerprintsEnrolled      = 1 << 5
	flagDenyNewUSBWhenLocked      = 1 << 6
	flagDeviceAdminNonSystem      = 1 << 7
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// deviceAdminText renders the device-administrator composite.
// It returns an error if the flag invariant deviceAdminNonSystem ⇒
// deviceAdmin is violated.
func deviceAdminText(flags uint8) (string, error) {
	deviceAdmin := flags&flagDeviceAdmin != 0
	deviceAdminNonSystem := flags&flagDeviceAdminNonSystem != 0

	if deviceAdminNonSystem && !deviceAdmin {
		return "", verifyerr.New(verifyerr.CodeInvalidFlags, "device_admin_non_system set without device_admin")
	}

	switch {
	case deviceAdminNonSystem:
		return "yes, but only system apps", nil
	case deviceAdmin:
		return "yes, with non-system apps", nil
	default:
		return "no", nil
	}
}

// formatOSVersion renders an Android os_version integer (major*10000 +
// minor*100 + patch) as "MM.NN.PP".
func formatOSVersion(osVersion int) string {
	major := osVersion / 10000
	minor := (osVersion / 100) % 100
	patch := osVersion % 100
	return fmt.Sprintf("%02d.%02d.%02d", major, minor, patch)
}

// formatOSPatchLevel renders an Android os_patch_level integer (YYYYMM) as
// "YYYY-MM".
func formatOSPatchLevel(patchLevel int) string {
	year := patchLevel / 100
	month := patchLevel % 100
	return fmt.Sprintf("%04d-%02d", year, month)
}

// appVersionOffset is subtracted from the policy-verified app version
// before display; the Auditor app encodes extra build metadata into low
// version-code bits that this offset strips back out.
const appVersionOffset = 9

// report is the textual pair the orchestrator returns on success.
type report struct {
	TeeText string
	OsText  string
}

func renderReport(osVersion, osPatchLevel int, appVersion int64, flags uint8, now time.Time) (*report, error) {
	adminText, err := deviceAdminText(flags)
	if err != nil {
		return nil, err
	}

	teeText := fmt.Sprintf(
		"OS version: %s\nOS patch level: %s\nTime: %s\n",
		formatOSVersion(osVersion), formatOSPatchLevel(osPatchLevel), now.Format(time.RFC1123Z))

	osText := fmt.Sprintf(
		"Auditor app version: %d\n"+
			"User profile secure: %s\n"+
			"Enrolled fingerprints: %s\n"+
			"Accessibility service(s) enabled: %s\n"+
			"Device administrator(s) enabled: %s\n"+
			"Android Debug Bridge enabled: %s\n"+
			"Add users from lock screen: %s\n"+
			"Disallow new USB peripherals when locked: %s\n",
		appVersion-appVersionOffset,
		yesNo(flags&flagUserProfileSecure != 0),
		yesNo(flags&flagFingerprintsEnrolled != 0),
		yesNo(flags&flagAccessibilityEnabled != 0),
		adminText,
		yesNo(flags&flagADBEnabled != 0),
		yesNo(flags&flagAddUsersFromLockScreen != 0),
		yesNo(flags&flagDenyNewUSBWhenLocked != 0),
	)

	return &report{TeeText: teeText, OsText: osText}, nil
}
