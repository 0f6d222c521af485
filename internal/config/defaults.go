package config

const (
	defaultDataDir           = "~/.local/share/tonight"
	defaultLogDir            = "~/.local/share/tonight/logs"
	defaultHouseholdKey      = "default"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogMaxSizeMB      = 10
	defaultLogMaxBackups     = 5
	defaultVendorKey         = "default_vendor"
	defaultVendorName        = "Neighborhood takeout"
	defaultDeepLinkTemplate  = "https://order.example.com/v/{vendor}?household={household}&ref={decision}"
	defaultPendingTTLMinutes = 90
)

// DefaultSafeCoreKeys lists the pantry-friendly meals offered when a household
// has no inventory on record.
var DefaultSafeCoreKeys = []string{
	"baked_potato",
	"black_bean_tacos",
	"cheese_quesadilla",
	"egg_fried_rice",
	"grilled_cheese",
	"pancakes",
	"pasta_marinara",
	"peanut_noodles",
	"scrambled_eggs",
	"tomato_soup",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	safeCore := make([]string, len(DefaultSafeCoreKeys))
	copy(safeCore, DefaultSafeCoreKeys)
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Household: Household{
			Key: defaultHouseholdKey,
		},
		Scoring: Scoring{
			InventoryWeight:    0.60,
			TasteWeight:        0.35,
			RotationWindow:     7,
			RotationPenalty:    -0.20,
			ExplorationMax:     0.05,
			TieEpsilon:         1e-4,
			MinConfidence:      0.60,
			StrongMatchQuality: 0.80,
			WeakMatchCap:       0.50,
			MinMatchQuality:    0.50,
			DecayHalfLifeDays:  10,
			UsagePerDay:        0,
			TasteScale:         5,
			SafeCoreKeys:       safeCore,
		},
		DRM: DRM{
			AutoRescue:             true,
			RejectionWindowMinutes: 30,
			LateWindowStartHour:    18,
			LateHour:               20,
			DinnerStartHour:        17,
			OrderCutoffHour:        20,
			VendorKey:              defaultVendorKey,
			VendorName:             defaultVendorName,
			DeepLinkTemplate:       defaultDeepLinkTemplate,
		},
		Autopilot: Autopilot{
			Enabled:           true,
			WindowStartHour:   15,
			WindowEndHour:     18,
			MinInventoryScore: 0.80,
			MinDecisions:      5,
			UndoCooldownHours: 72,
			RepeatDays:        3,
		},
		Feedback: Feedback{
			PendingTTLMinutes: defaultPendingTTLMinutes,
			ApproveWeight:     1.0,
			RejectWeight:      -1.0,
			ExpireWeight:      -0.5,
			UndoWeight:        -1.5,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
