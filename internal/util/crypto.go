package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt 参数：N=32768 一次哈希约几百毫秒，密钥 64 字节
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltBytes    = 16
)

// HashPassword 使用 scrypt 生成密码哈希，返回 "digest.salt" 形式的字符串（hex 编码）。
// 强度校验由 ValidatePassword 负责，这里只管派生。
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return hex.EncodeToString(digest) + "." + hex.EncodeToString(salt), nil
}

// CheckPassword 验证明文密码与存储的哈希是否匹配。
// 任何畸形输入（空密码、空哈希、缺少分隔符、非法 hex）一律返回 false，不抛错。
func CheckPassword(password, stored string) bool {
	if password == "" || stored == "" {
		return false
	}

	digestStr, saltStr, found := strings.Cut(stored, ".")
	if !found || digestStr == "" || saltStr == "" {
		return false
	}

	expected, err := hex.DecodeString(digestStr)
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(saltStr)
	if err != nil {
		return false
	}

	digest, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(expected))
	if err != nil {
		return false
	}

	// constant time compare
	return subtle.ConstantTimeCompare(digest, expected) == 1
}

// GenerateToken 生成不可猜测的随机令牌（hex 编码），nBytes 为熵的字节数。
// 会话令牌用 32 字节（256 bit），邮箱验证/密码重置令牌用 32 字节。
func GenerateToken(nBytes int) (string, error) {
	if nBytes < 16 {
		nBytes = 16 // 至少 128 bit
	}
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
