package util

import (
	"strings"
	"testing"
)

// ============ 密码哈希测试 ============

func TestHashPassword(t *testing.T) {
	password := "MyPassword123"

	// 测试正常哈希
	hashed, err := HashPassword(password)
	if err != nil {
		t.Fatalf("哈希失败: %v", err)
	}
	if !strings.Contains(hashed, ".") {
		t.Error("哈希格式错误，应为 digest.salt")
	}

	// 测试空密码
	_, err = HashPassword("")
	if err == nil {
		t.Error("空密码应返回错误")
	}

	// 测试相同密码生成不同哈希
	hashed2, _ := HashPassword(password)
	if hashed == hashed2 {
		t.Error("相同密码应生成不同哈希（随机salt）")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "TestPass456"
	hashed, _ := HashPassword(password)

	// 测试正确密码
	if !CheckPassword(password, hashed) {
		t.Error("正确密码验证失败")
	}

	// 测试错误密码
	if CheckPassword("WrongPass", hashed) {
		t.Error("错误密码不应通过验证")
	}

	// 测试空输入
	if CheckPassword("", hashed) {
		t.Error("空密码不应通过验证")
	}
	if CheckPassword(password, "") {
		t.Error("空哈希不应通过验证")
	}
}

func TestCheckPassword_Malformed(t *testing.T) {
	// 畸形哈希一律返回 false，绝不 panic
	cases := []string{
		"invalid-format",      // 没有分隔符
		".abcdef",             // 缺 digest
		"abcdef.",             // 缺 salt
		"zzzz.abcd",           // 非法 hex digest
		"abcd.zzzz",           // 非法 hex salt
		"..",
	}
	for _, stored := range cases {
		if CheckPassword("AnyPassword1", stored) {
			t.Errorf("畸形哈希 %q 不应通过验证", stored)
		}
	}
}

// ============ 随机令牌测试 ============

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	// 32 字节 hex 编码后 64 字符
	if len(tok) != 64 {
		t.Errorf("长度错误: 期望64，实际%d", len(tok))
	}

	// 测试唯一性
	tok2, _ := GenerateToken(32)
	if tok == tok2 {
		t.Error("应生成不同的随机令牌")
	}

	// 过小的熵会被提升到 16 字节（128 bit）下限
	small, err := GenerateToken(1)
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	if len(small) < 32 {
		t.Errorf("令牌熵不足 128 bit: hex 长度 %d", len(small))
	}
}

// ============ 性能测试 ============

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HashPassword("BenchPassword1")
	}
}

func BenchmarkCheckPassword(b *testing.B) {
	hashed, _ := HashPassword("BenchPassword1")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CheckPassword("BenchPassword1", hashed)
	}
}
