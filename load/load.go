// Package load 解析电源网络网表。
// 只有以 R、I、V(不区分大小写)开头的行被视为元件行,
// 其余行(标题、注释、分析命令)全部忽略。
package load

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"pdnfake/graph"
	"pdnfake/types"
)

// tokenSize 元件行的字段数量
const tokenSize = 4

// zstdExt 压缩网表扩展名
const zstdExt = ".zst"

// isElementLine 检查是否为元件行
func isElementLine(line string) bool {
	return line != "" && types.GetNameType(line) != types.TypeUnknown
}

// ReadLines 读取全部元件行
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if isElementLine(line) {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// zstdReadCloser 关闭解压器的同时关闭文件
type zstdReadCloser struct {
	*zstd.Decoder
	file *os.File
}

// Close 关闭
func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}

// Open 打开网表文件,.zst 结尾的文件自动解压
func Open(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(filename, zstdExt) {
		return file, nil
	}
	decoder, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("创建 zstd 解压器失败: %w", err)
	}
	return &zstdReadCloser{Decoder: decoder, file: file}, nil
}

// ReadFile 读取网表文件中的元件行
func ReadFile(filename string) ([]string, error) {
	file, err := Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	lines, err := ReadLines(file)
	if err != nil {
		return nil, fmt.Errorf("读取网表 %s 失败: %w", filename, err)
	}
	return lines, nil
}

// ParseString 解析网表文本
func ParseString(s string, opts ...graph.Option) (*graph.Graph, error) {
	lines, err := ReadLines(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	return Parse(lines, opts...)
}

// builder 解析过程中的临时状态,名称到节点的映射在解析结束后丢弃
type builder struct {
	g     *graph.Graph
	nodes map[string]types.NodeID
}

// node 按名称获取或创建节点
func (b *builder) node(name string) types.NodeID {
	if id, ok := b.nodes[name]; ok {
		return id
	}
	id := b.g.AddNode(name, ParseNodeName(name))
	b.nodes[name] = id
	return id
}

// markEligible 按金属层标记可连接的电源类型
func (b *builder) markEligible(id types.NodeID) {
	n := b.g.Node(id)
	switch n.Coords.Layer {
	case types.CurrentLayer:
		if len(n.CurrentSources) == 0 {
			n.CanConnectCurrent = true
		}
	case types.VoltageLayer:
		if len(n.VoltageSources) == 0 {
			n.CanConnectVoltage = true
		}
	}
}

// Parse 将元件行构建为电源网络图。
// 任意一行格式错误都会中止解析,不返回部分结果。
func Parse(lines []string, opts ...graph.Option) (*graph.Graph, error) {
	b := &builder{
		g:     graph.NewGraph(opts...),
		nodes: make(map[string]types.NodeID),
	}
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != tokenSize {
			return nil, errorAtLine(i+1, line, "字段数量应为 %d,实际为 %d", tokenSize, len(fields))
		}
		name := fields[0]
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, errorAtLine(i+1, line, "%v", err)
		}
		switch types.GetNameType(name) {
		case types.TypeResistor:
			first, second := b.node(fields[1]), b.node(fields[2])
			b.g.AddResistor(name, first, second, value)
			b.markEligible(first)
			b.markEligible(second)
		case types.TypeCurrentSource:
			id := b.node(fields[1])
			b.g.AddCurrentSource(name, id, value)
			b.g.Node(id).CanConnectCurrent = false
		case types.TypeVoltageSource:
			id := b.node(fields[1])
			b.g.AddVoltageSource(name, id, value)
			n := b.g.Node(id)
			n.Value += value
			n.IsVoltageNode = true
			n.CanConnectVoltage = false
			b.g.Supply = value
		default:
			return nil, errorAtLine(i+1, line, "未知的元件类型 '%s'", name)
		}
	}
	b.g.State = graph.StateBuilt
	return b.g, nil
}
