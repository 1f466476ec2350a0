package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func GetUniqSubDir(parentPath string) (path string, err error) {
	path = filepath.Join(parentPath, uuid.NewString())
	err = os.Mkdir(path, os.ModePerm)
	return
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 将srcDir下与name同名（不同扩展名）的一组文件移到dstDir，返回移动后的文件
func MoveSidecars(srcDir, name, dstDir string) (moved []string, err error) {
	files, err := filepath.Glob(filepath.Join(srcDir, name+".*"))
	if err != nil {
		return
	}
	for _, f := range files {
		dst := filepath.Join(dstDir, filepath.Base(f))
		if err = os.Rename(f, dst); err != nil {
			return
		}
		moved = append(moved, dst)
	}
	return
}
