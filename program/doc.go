// Package program parses firmware images and exposes the views a flash
// session needs: the flattened body, its checksum, fixed-size upload chunks
// and padded pages.
//
// # Image Formats
//
// Intel HEX (.hex) images are read record by record:
//
//	:LLAAAATT[DD...]CC
//	  LL   = data length
//	  AAAA = 16-bit address (big-endian)
//	  TT   = record type (00 data, 01 end of file, 02 extended segment
//	         address, 04 extended linear address)
//	  CC   = two's complement of the sum of all preceding record bytes
//
// Every record checksum is verified. Records may arrive out of order; gaps
// between them are filled with 0xFF from the lowest address up.
//
// Raw binary (.bin) images are taken as-is.
//
// # Usage
//
//	prog, err := program.Parse("bootstrap.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !prog.Valid() {
//	    log.Fatal("image cannot be flashed")
//	}
//	fmt.Printf("%d bytes, %d pages\n", prog.Len(), prog.PageCount())
//
// # Validity
//
// A program is valid when it carries at least one byte and no more than
// MaxPageCount pages. Invalid programs are still returned by the parsers so
// callers can inspect them, but a flash session refuses them.
package program
