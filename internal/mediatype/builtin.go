package mediatype

var builtins = []MediaType{
	{Key: "mp4", Category: CategoryVideo, MimeType: "video/mp4", Extensions: []string{"mp4", "m4v"}},
	{Key: "webm", Category: CategoryVideo, MimeType: "video/webm", Extensions: []string{"webm"}},
	{Key: "mkv", Category: CategoryVideo, MimeType: "video/x-matroska", Extensions: []string{"mkv"}},
	{Key: "mov", Category: CategoryVideo, MimeType: "video/quicktime", Extensions: []string{"mov"}},
	{Key: "avi", Category: CategoryVideo, MimeType: "video/x-msvideo", Extensions: []string{"avi"}},
	{Key: "flv", Category: CategoryVideo, MimeType: "video/x-flv", Extensions: []string{"flv"}},
	{Key: "ogv", Category: CategoryVideo, MimeType: "video/ogg", Extensions: []string{"ogv"}},
	{Key: "mpeg", Category: CategoryVideo, MimeType: "video/mpeg", Extensions: []string{"mpeg", "mpg"}},

	{Key: "mp3", Category: CategoryAudio, MimeType: "audio/mpeg", Extensions: []string{"mp3"}},
	{Key: "ogg", Category: CategoryAudio, MimeType: "audio/ogg", Extensions: []string{"ogg", "oga"}},
	{Key: "wav", Category: CategoryAudio, MimeType: "audio/wav", Extensions: []string{"wav"}},
	{Key: "flac", Category: CategoryAudio, MimeType: "audio/flac", Extensions: []string{"flac"}},
	{Key: "m4a", Category: CategoryAudio, MimeType: "audio/mp4", Extensions: []string{"m4a"}},
	{Key: "aac", Category: CategoryAudio, MimeType: "audio/aac", Extensions: []string{"aac"}},

	{Key: "jpg", Category: CategoryImage, MimeType: "image/jpeg", Extensions: []string{"jpg", "jpeg"}},
	{Key: "png", Category: CategoryImage, MimeType: "image/png", Extensions: []string{"png"}},
	{Key: "gif", Category: CategoryImage, MimeType: "image/gif", Extensions: []string{"gif"}},
	{Key: "webp", Category: CategoryImage, MimeType: "image/webp", Extensions: []string{"webp"}},
	{Key: "bmp", Category: CategoryImage, MimeType: "image/bmp", Extensions: []string{"bmp"}},
	{Key: "tiff", Category: CategoryImage, MimeType: "image/tiff", Extensions: []string{"tif", "tiff"}},
	{Key: "svg", Category: CategoryImage, MimeType: "image/svg+xml", Extensions: []string{"svg"}},

	{Key: "pdf", Category: CategoryDocument, MimeType: "application/pdf", Extensions: []string{"pdf"}},
	{Key: "doc", Category: CategoryDocument, MimeType: "application/msword", Extensions: []string{"doc"}},
	{Key: "docx", Category: CategoryDocument, MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Extensions: []string{"docx"}},
	{Key: "xls", Category: CategoryDocument, MimeType: "application/vnd.ms-excel", Extensions: []string{"xls"}},
	{Key: "xlsx", Category: CategoryDocument, MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Extensions: []string{"xlsx"}},
	{Key: "ppt", Category: CategoryDocument, MimeType: "application/vnd.ms-powerpoint", Extensions: []string{"ppt"}},
	{Key: "pptx", Category: CategoryDocument, MimeType: "application/vnd.openxmlformats-officedocument.presentationml.presentation", Extensions: []string{"pptx"}},
	{Key: "odt", Category: CategoryDocument, MimeType: "application/vnd.oasis.opendocument.text", Extensions: []string{"odt"}},
	{Key: "ods", Category: CategoryDocument, MimeType: "application/vnd.oasis.opendocument.spreadsheet", Extensions: []string{"ods"}},
	{Key: "odp", Category: CategoryDocument, MimeType: "application/vnd.oasis.opendocument.presentation", Extensions: []string{"odp"}},
	{Key: "rtf", Category: CategoryDocument, MimeType: "application/rtf", Extensions: []string{"rtf"}},
	{Key: "txt", Category: CategoryDocument, MimeType: "text/plain", Extensions: []string{"txt", "text"}},

	{Key: "zip", Category: CategoryArchive, MimeType: "application/zip", Extensions: []string{"zip"}},
	{Key: "gz", Category: CategoryArchive, MimeType: "application/x-gzip", Extensions: []string{"gz", "tgz"}},

	{Key: BinaryKey, Category: CategoryOther, MimeType: "application/octet-stream", Extensions: []string{"bin"}},
}
