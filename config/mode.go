package config

// IsDevelopment 是否为开发模式（debug）。未加载配置时视为开发环境
func IsDevelopment() bool {
	if GlobalConfig == nil {
		return true
	}
	mode := GlobalConfig.Server.Mode
	return mode == "" || mode == "debug"
}

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
func SafeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if !IsDevelopment() {
		return fallback
	}
	return err.Error()
}
