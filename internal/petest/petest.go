// Package petest builds small synthetic PE images for tests.
//
// The images are never meant to run: they carry a DOS stub, PE headers, one
// code section filled with a recognizable pattern and, optionally, a .rsrc
// section written by winres.
package petest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tc-hib/winres"
)

const (
	sizeOfDOSHeader   = 0x40
	sectionAlignment  = 0x1000
	fileAlignment     = 0x200
	sizeOfHeaders     = 0x200
	codeVirtualAddr   = 0x1000
	numberOfDataDirs  = 16
	dosNewHeaderField = 0x3C

	// optional header size without the data directories
	sizeOfOptionalHeaderFields   = 96
	sizeOfOptionalHeaderFields64 = 112
)

// Resource is a numerically addressed resource to pre-populate.
type Resource struct {
	Type     uint16
	Name     uint16
	Language uint16
	Data     []byte
}

// Options describes the image to build.
type Options struct {
	PE32Plus  bool
	DLL       bool
	CodeSize  int // defaults to 0x400
	Resources []Resource
	Signed    bool // appends a dummy attribute certificate table
}

// Build returns the bytes of a PE image.
func Build(opts Options) ([]byte, error) {
	codeSize := opts.CodeSize
	if codeSize <= 0 {
		codeSize = 0x400
	}
	rawCode := align(uint32(codeSize), fileAlignment)

	buf := new(bytes.Buffer)

	var dos [sizeOfDOSHeader]byte
	copy(dos[:], "MZ")
	binary.LittleEndian.PutUint32(dos[dosNewHeaderField:], sizeOfDOSHeader)
	buf.Write(dos[:])
	buf.WriteString("PE\x00\x00")

	fh := pe.FileHeader{
		Machine:          pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections: 1,
		Characteristics:  pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE,
	}
	if opts.PE32Plus {
		fh.Machine = pe.IMAGE_FILE_MACHINE_AMD64
		fh.Characteristics = pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_LARGE_ADDRESS_AWARE
	}
	if opts.DLL {
		fh.Characteristics |= pe.IMAGE_FILE_DLL
	}
	sizeOfImage := codeVirtualAddr + align(uint32(codeSize), sectionAlignment)

	var opt interface{}
	if opts.PE32Plus {
		fh.SizeOfOptionalHeader = uint16(binary.Size(pe.OptionalHeader64{}))
		opt = &pe.OptionalHeader64{
			Magic:                 0x20b,
			SizeOfCode:            rawCode,
			BaseOfCode:            codeVirtualAddr,
			ImageBase:             0x140000000,
			SectionAlignment:      sectionAlignment,
			FileAlignment:         fileAlignment,
			MajorSubsystemVersion: 6,
			SizeOfImage:           sizeOfImage,
			SizeOfHeaders:         sizeOfHeaders,
			Subsystem:             pe.IMAGE_SUBSYSTEM_WINDOWS_GUI,
			NumberOfRvaAndSizes:   numberOfDataDirs,
		}
	} else {
		fh.SizeOfOptionalHeader = uint16(binary.Size(pe.OptionalHeader32{}))
		opt = &pe.OptionalHeader32{
			Magic:                 0x10b,
			SizeOfCode:            rawCode,
			BaseOfCode:            codeVirtualAddr,
			ImageBase:             0x400000,
			SectionAlignment:      sectionAlignment,
			FileAlignment:         fileAlignment,
			MajorSubsystemVersion: 6,
			SizeOfImage:           sizeOfImage,
			SizeOfHeaders:         sizeOfHeaders,
			Subsystem:             pe.IMAGE_SUBSYSTEM_WINDOWS_GUI,
			NumberOfRvaAndSizes:   numberOfDataDirs,
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, fh); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, opt); err != nil {
		return nil, err
	}

	text := pe.SectionHeader32{
		VirtualSize:      uint32(codeSize),
		VirtualAddress:   codeVirtualAddr,
		SizeOfRawData:    rawCode,
		PointerToRawData: sizeOfHeaders,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ,
	}
	copy(text.Name[:], ".text")
	if err := binary.Write(buf, binary.LittleEndian, text); err != nil {
		return nil, err
	}
	buf.Write(make([]byte, sizeOfHeaders-buf.Len()))

	code := make([]byte, rawCode)
	for i := 0; i < codeSize; i++ {
		code[i] = byte(i*7 + 3)
	}
	buf.Write(code)

	image := buf.Bytes()
	if len(opts.Resources) > 0 {
		rs := &winres.ResourceSet{}
		for _, r := range opts.Resources {
			if err := rs.Set(winres.ID(r.Type), winres.ID(r.Name), r.Language, r.Data); err != nil {
				return nil, err
			}
		}
		out := new(bytes.Buffer)
		if err := rs.WriteToEXE(out, bytes.NewReader(image)); err != nil {
			return nil, err
		}
		image = out.Bytes()
	}
	if opts.Signed {
		image = sign(image, opts.PE32Plus)
	}
	return image, nil
}

// sign points the security data directory at a certificate table appended
// to the end of the file. The table content is not a valid signature.
func sign(image []byte, pe32Plus bool) []byte {
	dirs := sizeOfDOSHeader + 4 + binary.Size(pe.FileHeader{}) + sizeOfOptionalHeaderFields
	if pe32Plus {
		dirs = sizeOfDOSHeader + 4 + binary.Size(pe.FileHeader{}) + sizeOfOptionalHeaderFields64
	}
	entry := dirs + pe.IMAGE_DIRECTORY_ENTRY_SECURITY*8

	cert := []byte{8, 0, 0, 0, 0, 2, 2, 0}
	binary.LittleEndian.PutUint32(image[entry:], uint32(len(image)))
	binary.LittleEndian.PutUint32(image[entry+4:], uint32(len(cert)))
	return append(image, cert...)
}

// Write builds an image and stores it as dir/name.
func Write(t testing.TB, dir, name string, opts Options) string {
	t.Helper()
	data, err := Build(opts)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func align(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}
