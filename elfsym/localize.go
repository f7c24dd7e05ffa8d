// Package elfsym performs exact, in-place edits of ELF symbol tables.
//
// Localize demotes a set of named symbols to local binding and hidden
// visibility without relinking: only the st_info and st_other bytes of
// matching entries change, so section layout, offsets and every other
// byte of the file stay identical.
package elfsym

import (
	"debug/elf"
	"fmt"
	"io"
	"os"
)

const (
	elf32SymSize    = 16
	elf64SymSize    = 24
	elf32InfoOffset = 12
	elf64InfoOffset = 4
)

// Localize copies input to output and demotes every symbol named in
// symbols to local binding and hidden visibility, in both the dynamic
// symbol table and the regular symbol table if present. A shared
// library without a dynamic symbol table is rejected; symbols not
// present in a table are ignored.
func Localize(input, output string, symbols []string) error {
	if err := copyFile(input, output); err != nil {
		return err
	}

	f, err := os.OpenFile(output, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := localizeFile(f, symbols); err != nil {
		f.Close()
		return err
	}
	// The close error matters on a written handle.
	return f.Close()
}

func localizeFile(f *os.File, symbols []string) error {
	ef, err := elf.NewFile(f)
	if err != nil {
		return err
	}

	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()

	dynsym := sectionByType(ef, elf.SHT_DYNSYM)
	if dynsym == nil {
		return fmt.Errorf("%s: no dynamic symbol table", f.Name())
	}
	if err := patchSymbolTable(f, ef, dynsym, set, size); err != nil {
		return err
	}

	// Stripped libraries have no .symtab; that is fine.
	if symtab := sectionByType(ef, elf.SHT_SYMTAB); symtab != nil {
		if err := patchSymbolTable(f, ef, symtab, set, size); err != nil {
			return err
		}
	}

	return nil
}

// patchSymbolTable rewrites the binding and visibility bytes of every
// entry in sect whose name is in set. The symbol name index lives at
// offset 0 of an entry in both ELF classes; only the location of
// st_info and st_other differs.
func patchSymbolTable(f *os.File, ef *elf.File, sect *elf.Section, set map[string]bool, fileSize int64) error {
	var entSize, infoOffset int
	switch ef.Class {
	case elf.ELFCLASS32:
		entSize, infoOffset = elf32SymSize, elf32InfoOffset
	case elf.ELFCLASS64:
		entSize, infoOffset = elf64SymSize, elf64InfoOffset
	default:
		return fmt.Errorf("unsupported ELF class %v", ef.Class)
	}

	if sect.Entsize != uint64(entSize) {
		return fmt.Errorf("section %s: unexpected symbol entry size %d", sect.Name, sect.Entsize)
	}
	if sect.Size%uint64(entSize) != 0 {
		return fmt.Errorf("section %s: size %d is not a multiple of entry size %d",
			sect.Name, sect.Size, entSize)
	}
	if int(sect.Link) >= len(ef.Sections) {
		return fmt.Errorf("section %s: string table link %d out of range", sect.Name, sect.Link)
	}
	if sect.Offset+sect.Size > uint64(fileSize) {
		return fmt.Errorf("section %s: extends past end of file", sect.Name)
	}

	strtab, err := ef.Sections[sect.Link].Data()
	if err != nil {
		return err
	}
	data, err := sect.Data()
	if err != nil {
		return err
	}

	for i := 0; i < len(data)/entSize; i++ {
		entry := data[i*entSize:]
		name := stringAt(strtab, ef.ByteOrder.Uint32(entry))
		if !set[name] {
			continue
		}

		stInfo := entry[infoOffset]
		stOther := entry[infoOffset+1]
		patched := []byte{
			byte(elf.STB_LOCAL)<<4 | stInfo&0x0f,
			stOther&^0x03 | byte(elf.STV_HIDDEN),
		}

		off := int64(sect.Offset) + int64(i*entSize+infoOffset)
		if off+2 > fileSize {
			return fmt.Errorf("section %s: symbol %q entry extends past end of file", sect.Name, name)
		}
		if _, err := f.WriteAt(patched, off); err != nil {
			return err
		}
	}

	return nil
}

func sectionByType(ef *elf.File, typ elf.SectionType) *elf.Section {
	for _, s := range ef.Sections {
		if s.Type == typ {
			return s
		}
	}
	return nil
}

func stringAt(strtab []byte, off uint32) string {
	if off >= uint32(len(strtab)) {
		return ""
	}
	end := off
	for end < uint32(len(strtab)) && strtab[end] != 0 {
		end++
	}
	return string(strtab[off:end])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
