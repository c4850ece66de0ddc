package types

// BatchIngestRequest 批量导入请求.
type BatchIngestRequest struct {
	Items []IngestItem `json:"items" rule:"required,min=1,max=500,dive"`
}

// IngestItem 一个待创建的作品.
type IngestItem struct {
	Title         string       `json:"title"                    rule:"required,max=512"`
	Description   string       `json:"description,omitempty"`
	Visibility    string       `json:"visibility,omitempty"     rule:"omitempty,visibility"`
	CollectionIDs []string     `json:"collection_ids,omitempty" rule:"dive,required,max=64"`
	Files         []IngestFile `json:"files,omitempty"          rule:"dive"`
}

// IngestFile 服务器本地文件.
type IngestFile struct {
	Path     string `json:"path"                rule:"required"`
	Label    string `json:"label,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// BatchIngestResult 批量导入结果；单条失败不影响其他条目.
type BatchIngestResult struct {
	Items     []IngestItemResult `json:"items"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// IngestItemResult 单个条目的结果.
type IngestItemResult struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	WorkID string `json:"work_id,omitempty"`
	Files  int    `json:"files"`
	Error  string `json:"error,omitempty"`
}
