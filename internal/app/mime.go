package app

import (
	"log/slog"
	"mime"
)

// attachmentTypes covers files buyers commonly attach that some platforms
// report as application/octet-stream.
var attachmentTypes = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".dwg":  "application/acad",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".msg":  "application/vnd.ms-outlook",
}

func init() {
	for ext, typ := range attachmentTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
