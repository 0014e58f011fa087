package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL    string        // Base URL of the coordinator
	Token      string        // Session token sent in the Token header
	EventID    int64         // Event to work on; 0 asks the coordinator for the active one
	Workers    int           // Concurrent selection requests
	Timeout    time.Duration // HTTP request timeout
	Submit     bool          // Submit the planned selections instead of clearing them
	SettleWait time.Duration // How long to wait for members to stop being busy
	OutputFile string        // Output file for the submission report
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	Members         int
	Locked          int
	Planned         int
	Selected        int
	SelectFailed    int
	Submitted       int
	Succeeded       int
	SubmitFailed    int
	Cleared         int
	VenuesAvailable int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
