// file: internal/server/requests.go
// version: 1.0.0
// guid: 3e6b9d12-7f48-4c05-92ae-d1c84f6b30e7

package server

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// Genders is the fixed enumeration accepted for profile gender fields.
var Genders = []string{"man", "woman", "other"}

// emailRegex is a simple format check, not RFC-complete.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

func validGender(gender string) bool {
	for _, g := range Genders {
		if gender == g {
			return true
		}
	}
	return false
}

// RequestOTPRequest starts (or restarts) the OTP sign-in flow.
type RequestOTPRequest struct {
	Email string `json:"email"`
}

func (r RequestOTPRequest) Validate() []FieldError {
	var fields []FieldError
	if strings.TrimSpace(r.Email) == "" {
		fields = append(fields, FieldError{Field: "email", Message: "email is required"})
	} else if !validEmail(r.Email) {
		fields = append(fields, FieldError{Field: "email", Message: "email format is invalid"})
	}
	return fields
}

// CheckOTPRequest completes the OTP challenge.
type CheckOTPRequest struct {
	OTP string `json:"otp"`
}

func (r CheckOTPRequest) Validate() []FieldError {
	var fields []FieldError
	otp := strings.TrimSpace(r.OTP)
	if otp == "" {
		fields = append(fields, FieldError{Field: "otp", Message: "otp is required"})
	} else if len(otp) != otpLength {
		fields = append(fields, FieldError{Field: "otp", Message: "otp must be 6 digits"})
	}
	return fields
}

// ProfilePatchRequest updates profile fields during or after onboarding.
// Nil pointers leave the stored value untouched.
type ProfilePatchRequest struct {
	Name    *string `json:"name"`
	Gender  *string `json:"gender"`
	AboutMe *string `json:"about_me"`
}

func (r ProfilePatchRequest) Validate() []FieldError {
	var fields []FieldError
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name must not be empty"})
	}
	if r.Name != nil && len(*r.Name) > 128 {
		fields = append(fields, FieldError{Field: "name", Message: "name must not exceed 128 characters"})
	}
	if r.Gender != nil && !validGender(*r.Gender) {
		fields = append(fields, FieldError{Field: "gender", Message: "gender must be one of man, woman, other"})
	}
	if r.AboutMe != nil && len(*r.AboutMe) > 10000 {
		fields = append(fields, FieldError{Field: "about_me", Message: "about_me must not exceed 10000 characters"})
	}
	if r.Name == nil && r.Gender == nil && r.AboutMe == nil {
		fields = append(fields, FieldError{Field: "body", Message: "at least one field must be provided"})
	}
	return fields
}

// deletableProfileFields are the profile fields that may be cleared.
var deletableProfileFields = []string{"name", "gender", "about_me", "photo"}

// DeleteFieldsRequest clears named profile fields.
type DeleteFieldsRequest struct {
	Fields []string `json:"fields"`
}

func (r DeleteFieldsRequest) Validate() []FieldError {
	var fields []FieldError
	if len(r.Fields) == 0 {
		fields = append(fields, FieldError{Field: "fields", Message: "fields must not be empty"})
	}
	for _, f := range r.Fields {
		known := false
		for _, allowed := range deletableProfileFields {
			if f == allowed {
				known = true
				break
			}
		}
		if !known {
			fields = append(fields, FieldError{Field: "fields", Message: "unknown field: " + f})
		}
	}
	return fields
}

// SkipRequest optionally attaches an abuse report to a skip.
type SkipRequest struct {
	ReportReason *string `json:"report_reason"`
}

func (r SkipRequest) Validate() []FieldError {
	var fields []FieldError
	if r.ReportReason != nil {
		reason := strings.TrimSpace(*r.ReportReason)
		if reason == "" {
			fields = append(fields, FieldError{Field: "report_reason", Message: "report_reason must not be empty when present"})
		}
		if len(reason) > 2000 {
			fields = append(fields, FieldError{Field: "report_reason", Message: "report_reason must not exceed 2000 characters"})
		}
	}
	return fields
}

// Reported reports whether the skip carries an abuse report.
func (r SkipRequest) Reported() bool {
	return r.ReportReason != nil && strings.TrimSpace(*r.ReportReason) != ""
}

// AnswerRequest records a yes/no answer to a personality question.
type AnswerRequest struct {
	QuestionID int   `json:"question_id"`
	Answer     *bool `json:"answer"`
	Public     bool  `json:"public"`
}

func (r AnswerRequest) Validate() []FieldError {
	var fields []FieldError
	if r.QuestionID < 1 {
		fields = append(fields, FieldError{Field: "question_id", Message: "question_id must be a positive integer"})
	}
	if r.Answer == nil {
		fields = append(fields, FieldError{Field: "answer", Message: "answer is required"})
	}
	return fields
}

// DeleteAnswerRequest removes a previously recorded answer.
type DeleteAnswerRequest struct {
	QuestionID int `json:"question_id"`
}

func (r DeleteAnswerRequest) Validate() []FieldError {
	if r.QuestionID < 1 {
		return []FieldError{{Field: "question_id", Message: "question_id must be a positive integer"}}
	}
	return nil
}

// InboxInfoRequest resolves a batch of conversation partners to profiles.
type InboxInfoRequest struct {
	PersonUUIDs []string `json:"person_uuids"`
}

func (r InboxInfoRequest) Validate() []FieldError {
	var fields []FieldError
	if len(r.PersonUUIDs) == 0 {
		fields = append(fields, FieldError{Field: "person_uuids", Message: "person_uuids must not be empty"})
	}
	if len(r.PersonUUIDs) > 100 {
		fields = append(fields, FieldError{Field: "person_uuids", Message: "person_uuids must not exceed 100 entries"})
	}
	for _, uuid := range r.PersonUUIDs {
		if strings.TrimSpace(uuid) == "" {
			fields = append(fields, FieldError{Field: "person_uuids", Message: "person_uuids entries must not be blank"})
			break
		}
	}
	return fields
}

// SearchFilterRequest sets the person's search preference.
type SearchFilterRequest struct {
	GenderPreference string `json:"gender_preference"`
	MinAge           int    `json:"min_age"`
	MaxAge           int    `json:"max_age"`
}

func (r SearchFilterRequest) Validate() []FieldError {
	var fields []FieldError
	if r.GenderPreference != "" && r.GenderPreference != "any" && !validGender(r.GenderPreference) {
		fields = append(fields, FieldError{Field: "gender_preference", Message: "gender_preference must be one of man, woman, other, any"})
	}
	if r.MinAge != 0 && r.MinAge < 18 {
		fields = append(fields, FieldError{Field: "min_age", Message: "min_age must be at least 18"})
	}
	if r.MaxAge != 0 && r.MaxAge > 130 {
		fields = append(fields, FieldError{Field: "max_age", Message: "max_age must not exceed 130"})
	}
	if r.MinAge != 0 && r.MaxAge != 0 && r.MinAge > r.MaxAge {
		fields = append(fields, FieldError{Field: "max_age", Message: "max_age must not be below min_age"})
	}
	return fields
}

// FilterAnswerRequest pins a required answer on a question filter. A nil
// answer clears the filter for that question.
type FilterAnswerRequest struct {
	QuestionID int   `json:"question_id"`
	Answer     *bool `json:"answer"`
}

func (r FilterAnswerRequest) Validate() []FieldError {
	if r.QuestionID < 1 {
		return []FieldError{{Field: "question_id", Message: "question_id must be a positive integer"}}
	}
	return nil
}

// ClubRequest joins or leaves a named club.
type ClubRequest struct {
	ClubName string `json:"club_name"`
}

func (r ClubRequest) Validate() []FieldError {
	var fields []FieldError
	name := strings.TrimSpace(r.ClubName)
	if name == "" {
		fields = append(fields, FieldError{Field: "club_name", Message: "club_name is required"})
	}
	if len(name) > 64 {
		fields = append(fields, FieldError{Field: "club_name", Message: "club_name must not exceed 64 characters"})
	}
	return fields
}

// bindAndValidate binds JSON into req and writes a single 400 carrying every
// violated field. Returns false when the request was rejected.
func bindAndValidate[T interface{ Validate() []FieldError }](c *gin.Context, req *T) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleBindError(c, err)
		return false
	}
	if fields := (*req).Validate(); len(fields) > 0 {
		RespondWithFieldErrors(c, fields)
		return false
	}
	return true
}
