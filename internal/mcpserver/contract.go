package mcpserver

// OutputFormatContract describes the tables resnum writes, for LLM
// consumers that read or post-process them.
const OutputFormatContract = `# resnum Output Format

resnum reads a delimited peptide table (tab-separated by default) and writes
a table of the same shape with one row per pivot residue found in each
peptide.

## Columns

1. Every input column, in input order. The peptide column (default
   ` + "`sequence`" + `) holds the peptide with mask characters (default ` + "`*`" + `) removed.
2. ` + "`original_sequence`" + `: the peptide exactly as it appeared in the input.
3. ` + "`residue`" + `: pivot letter followed by its 1-based position in the full
   protein, e.g. ` + "`C245`" + `.
4. ` + "`span`" + `: the protein window centred on that residue, ` + "`flank`" + ` residues on
   each side. Windows are truncated at either end of the protein, so a span
   can be shorter than 2*flank+1.

## Row rules

- A peptide with k pivot residues yields k rows, left to right.
- Rows are dropped when the peptide has no pivot, the accession is not in
  the FASTA database, or the peptide is not an exact substring of the
  protein. Only the first (leftmost) match is used.
- Input rows keep their order; duplicate input rows stay duplicated.

## Example

Protein ` + "`P1`" + ` = ` + "`MACDEFGHIK`" + `, pivot ` + "`C`" + `, flank 2:

| ipi | sequence | original_sequence | residue | span  |
|-----|----------|-------------------|---------|-------|
| P1  | CDEF     | C*DEF             | C3      | MACDE |
`
