package types

import "time"

// PersonalDetails is the contact block of a resume.
type PersonalDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Education is a single education entry on a resume.
type Education struct {
	School      string `json:"school"`
	Degree      string `json:"degree"`
	TimeStart   string `json:"timeStart"`
	TimeEnd     string `json:"timeEnd"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Experience is a single work experience entry on a resume.
type Experience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	TimeStart    string   `json:"timeStart"`
	TimeEnd      string   `json:"timeEnd"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// OtherExperience covers volunteering, open source, and similar entries.
type OtherExperience struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Resume is a candidate background document owned by a single user.
// Its text is flattened into the prompt context during a rehearsal session.
type Resume struct {
	ID int `json:"id" db:"id"`

	// UserID is the owning user. All reads and writes are scoped to it.
	UserID int `json:"userId" db:"user_id"`

	Title           string            `json:"title" db:"title"`
	PersonalDetails PersonalDetails   `json:"personalDetails" db:"personal_details"`
	Introduction    string            `json:"introduction,omitempty" db:"introduction"`
	Education       []Education       `json:"education,omitempty" db:"education"`
	Experience      []Experience      `json:"experience,omitempty" db:"experience"`
	OtherExperience []OtherExperience `json:"otherExperience,omitempty" db:"other_experience"`
	Skills          []string          `json:"skills,omitempty" db:"skills"`
	Languages       []string          `json:"languages,omitempty" db:"languages"`

	// IsDefault marks the resume used when a session does not pick one
	// explicitly. At most one resume per user carries this flag.
	IsDefault bool `json:"isDefault" db:"is_default"`

	// OriginalFileName is the name of the uploaded PDF, if any.
	OriginalFileName string `json:"originalFileName,omitempty" db:"original_file_name"`

	// ParsedFromPDF reports whether the structured fields were extracted
	// from an uploaded PDF rather than entered manually.
	ParsedFromPDF bool `json:"parsedFromPdf" db:"parsed_from_pdf"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
