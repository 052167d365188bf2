// Package export 按固定文本格式输出修改后的网表和 IR 压降报告。
package export

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

// IRDropHeader IR 压降报告表头
const IRDropHeader = "Nodes, Values"

// zstdExt 压缩文件扩展名
const zstdExt = ".zst"

// WriteNetlist 导出网表:先电阻,再电压源,最后电流源
func WriteNetlist(w io.Writer, g *graph.Graph) error {
	writer := bufio.NewWriter(w)
	for i := range g.Resistors {
		r := &g.Resistors[i]
		fmt.Fprintf(writer, "%s %s %s %.9f\n", r.Name, r.Ends[0], r.Ends[1], r.Value)
	}
	for i := range g.VoltageSources {
		vs := &g.VoltageSources[i]
		fmt.Fprintf(writer, "%s %s %s %.9f\n", vs.Name, vs.Coords, types.GroundName, vs.Value)
	}
	for i := range g.CurrentSources {
		cs := &g.CurrentSources[i]
		fmt.Fprintf(writer, "%s %s %s %.9f\n", cs.Name, cs.Coords, types.GroundName, cs.Value)
	}
	return writer.Flush()
}

// WriteIRDrop 导出每个节点的压降,格式为科学计数法
func WriteIRDrop(w io.Writer, g *graph.Graph) error {
	writer := bufio.NewWriter(w)
	writer.WriteString(IRDropHeader)
	writer.WriteRune('\n')
	for i := range g.Nodes {
		n := &g.Nodes[i]
		fmt.Fprintf(writer, "%s, %.16e\n", n.Name, g.Supply-n.Value)
	}
	return writer.Flush()
}

// zstdWriteCloser 关闭压缩器的同时关闭文件
type zstdWriteCloser struct {
	*zstd.Encoder
	file *os.File
}

// Close 关闭
func (z *zstdWriteCloser) Close() error {
	if err := z.Encoder.Close(); err != nil {
		z.file.Close()
		return err
	}
	return z.file.Close()
}

// Create 创建输出文件,.zst 结尾的文件自动压缩
func Create(filename string) (io.WriteCloser, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(filename, zstdExt) {
		return file, nil
	}
	encoder, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("创建 zstd 压缩器失败: %w", err)
	}
	return &zstdWriteCloser{Encoder: encoder, file: file}, nil
}

// writeFile 创建文件并写入内容
func writeFile(filename string, g *graph.Graph, write func(io.Writer, *graph.Graph) error) (err error) {
	file, err := Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	if err = write(file, g); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", filename, err)
	}
	return nil
}

// WriteNetlistFile 导出网表文件
func WriteNetlistFile(filename string, g *graph.Graph) error {
	return writeFile(filename, g, WriteNetlist)
}

// WriteIRDropFile 导出 IR 压降文件
func WriteIRDropFile(filename string, g *graph.Graph) error {
	return writeFile(filename, g, WriteIRDrop)
}
