package storage

import (
	"fmt"
	"mime"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxPhotoFileSize is the maximum profile photo size (5MB).
	MaxPhotoFileSize = 5 * 1024 * 1024
	// MaxMediaFileSize is the maximum brochure/gallery image size (10MB).
	MaxMediaFileSize = 10 * 1024 * 1024
	// MaxReportFileSize is the maximum report document size (25MB).
	MaxReportFileSize = 25 * 1024 * 1024

	// ContentTypePDF is the MIME type of certificates and PDF reports.
	ContentTypePDF = "application/pdf"

	FolderProfiles     = "profiles"
	FolderReports      = "ftps/reports"
	FolderGallery      = "ftps/gallery"
	FolderBrochures    = "ftps/brochures"
	FolderCertificates = "certificates"
)

// AllowedReportExtensions maps report document extensions to MIME types.
var AllowedReportExtensions = map[string]string{
	".pdf":  ContentTypePDF,
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// AttachmentDisposition returns a Content-Disposition value naming filename. Quotes and
// backslashes are escaped; non-ASCII names are carried in an RFC 2231 filename* parameter.
func AttachmentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// SanitizeFilename replaces every character outside [a-zA-Z0-9.-] with an underscore.
func SanitizeFilename(name string) string {
	return unsafeChars.ReplaceAllString(path.Base(name), "_")
}

func stamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ProfilePhotoKey returns profiles/{user_id}/{millis}_{name}.
func ProfilePhotoKey(userID, filename string, now time.Time) string {
	return path.Join(FolderProfiles, userID, stamp(now)+"_"+SanitizeFilename(filename))
}

// ReportKey returns ftps/reports/{program_id}/{millis}_{name}.
func ReportKey(programID, filename string, now time.Time) string {
	return path.Join(FolderReports, programID, stamp(now)+"_"+SanitizeFilename(filename))
}

// GalleryKey returns ftps/gallery/{program_id}/{millis}_gallery_{index}_{name}.
func GalleryKey(programID, filename string, index int, now time.Time) string {
	return path.Join(FolderGallery, programID, fmt.Sprintf("%s_gallery_%d_%s", stamp(now), index, SanitizeFilename(filename)))
}

// BrochureKey returns ftps/brochures/{program_id}/{millis}_{name}.
func BrochureKey(programID, filename string, now time.Time) string {
	return path.Join(FolderBrochures, programID, stamp(now)+"_"+SanitizeFilename(filename))
}

// CertificateKey returns certificates/{registration_id}/{filename}.
func CertificateKey(registrationID, filename string) string {
	return path.Join(FolderCertificates, registrationID, SanitizeFilename(filename))
}

// ReportContentType returns the MIME type for an allowed report document, or false.
func ReportContentType(filename string) (string, bool) {
	ct, ok := AllowedReportExtensions[strings.ToLower(path.Ext(filename))]
	return ct, ok
}
