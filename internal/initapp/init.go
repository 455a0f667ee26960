package initapp

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

func Init(configPath string) error {

	log.Printf("[Init] 开始初始化应用程序...")

	// 加载 .env（不存在时忽略，凭证也可以由部署环境直接注入）
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Init] 加载 .env 失败: %v", err)
			return err
		}
	} else {
		log.Printf("[Init] 已加载 .env")
	}

	// 确保数据目录存在
	dataDir := filepath.Dir(configPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Printf("[Init] 创建数据目录失败: %v", err)
		return err
	}

	log.Printf("[Init] 应用程序初始化完成")
	return nil
}
