package httpapi

// Result 统一响应外壳
// - status: 'success' | 'error'
// - message: 人读文案（错误时为失败原因）
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func Ok(message string) Result {
	return Result{Status: "success", Message: message}
}

func Fail(message string) Result {
	return Result{Status: "error", Message: message}
}
